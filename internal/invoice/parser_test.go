package invoice

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Parse", func() {
	var (
		lines  []RawTextLine
		result *ParseResult
		err    error
	)

	JustBeforeEach(func() {
		result, err = Parse(lines)
	})

	When("a receipt has a header, one item and a terminator", func() {
		BeforeEach(func() {
			lines = textLines(
				"12.03.2024  Kvittering 00123  Ansvarlig: Ola",
				"7038010021145  Melk 1L  1  20.00  25%  25.00",
				"SLUTT",
			)
		})

		It("returns the item with the header fields", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Items).To(HaveLen(1))

			item := result.Items[0]
			Expect(item.Date).To(Equal(time.Date(2024, time.March, 12, 0, 0, 0, 0, time.UTC)))
			Expect(item.ReceiptNumber).To(Equal("00123"))
			Expect(item.Responsible).To(Equal("Ola"))
			Expect(item.EAN).To(Equal("7038010021145"))
			Expect(item.Description).To(Equal("Melk 1L"))
			Expect(item.Quantity.Decimal.StringFixed(2)).To(Equal("1.00"))
			Expect(item.UnitPrice.Decimal.StringFixed(2)).To(Equal("20.00"))
			Expect(item.VatRate).To(Equal(Vat25))
			Expect(item.Amount.Decimal.StringFixed(2)).To(Equal("25.00"))
			Expect(item.Valid()).To(BeTrue())
		})

		It("keeps the source line", func() {
			Expect(result.Items[0].Source.Index).To(Equal(1))
			Expect(result.Items[0].Source.Page).To(Equal(1))
		})

		It("records one receipt", func() {
			Expect(result.Receipts).To(HaveLen(1))
			Expect(result.Receipts[0].ItemCount).To(Equal(1))
			Expect(result.Receipts[0].ComputedTotal.StringFixed(2)).To(Equal("25.00"))
			Expect(result.Receipts[0].DeclaredTotal.Valid).To(BeFalse())
			Expect(result.Receipts[0].Reconciled()).To(BeTrue())
		})
	})

	When("products come before the receipt sum line", func() {
		BeforeEach(func() {
			lines = textLines(
				"Rekvisisjoner",
				"12.03.2024 kvitteringsnr: 4711 Kari Nordmann 100,00 25,00 125,00",
				"7038010021145 Melk 1L 2 20,00 25% 50,00",
				"7041500001237 Brød 1 40,00 15% 46,00",
				"12.03.2024 Sum kvitteringsnr: 4711 60,00 96,00",
			)
		})

		It("backfills date and receipt number from the sum line", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Items).To(HaveLen(2))
			for _, item := range result.Items {
				Expect(item.DateText).To(Equal("12.03.2024"))
				Expect(item.ReceiptNumber).To(Equal("4711"))
				Expect(item.Valid()).To(BeTrue())
			}
		})

		It("looks up the responsible party in the requisition section", func() {
			Expect(result.Items[0].Responsible).To(Equal("Kari Nordmann"))
			Expect(result.Items[1].Responsible).To(Equal("Kari Nordmann"))
		})

		It("reconciles the declared totals", func() {
			Expect(result.Receipts).To(HaveLen(1))
			rt := result.Receipts[0]
			Expect(rt.DeclaredBase.Decimal.StringFixed(2)).To(Equal("60.00"))
			Expect(rt.DeclaredTotal.Decimal.StringFixed(2)).To(Equal("96.00"))
			Expect(rt.ComputedTotal.StringFixed(2)).To(Equal("96.00"))
			Expect(rt.Reconciled()).To(BeTrue())
		})
	})

	When("the receipt sum line has grouped amounts", func() {
		BeforeEach(func() {
			lines = textLines(
				"Rekvisisjoner",
				"12.03.2024 kvitteringsnr: 4711 Kari Nordmann 1 000,00 250,00 1 250,00",
				"7038010021145 Grill 1 1 000,00 25% 1 250,00",
				"12.03.2024 Sum kvitteringsnr: 4711 1 000,00 1 250,00",
			)
		})

		It("should read the responsible party and reconcile the grouped total", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Items).To(HaveLen(1))
			Expect(result.Items[0].Responsible).To(Equal("Kari Nordmann"))
			Expect(result.Items[0].Amount.Decimal.StringFixed(2)).To(Equal("1250.00"))
			rt := result.Receipts[0]
			Expect(rt.DeclaredBase.Decimal.StringFixed(2)).To(Equal("1000.00"))
			Expect(rt.DeclaredTotal.Decimal.StringFixed(2)).To(Equal("1250.00"))
			Expect(rt.Reconciled()).To(BeTrue())
		})
	})

	When("a receipt date is malformed", func() {
		BeforeEach(func() {
			lines = textLines(
				"31.02.2024  Kvittering 7  Ansvarlig: Per",
				"7020110004562  Egg 12 stk  1  40,00  15%  46,00",
				"7038010021145  Melk 1L  1  20,00  25%  25,00",
				"SLUTT",
				"12.03.2024  Kvittering 8  Ansvarlig: Per",
				"7038271007896  Kaffe  1  80,00  25%  100,00",
				"SLUTT",
			)
		})

		It("keeps every item on the receipt and flags the date", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Items).To(HaveLen(3))

			for _, item := range result.Items[:2] {
				Expect(item.HasFlag(FlagInvalidDate)).To(BeTrue())
				Expect(item.HasDate()).To(BeFalse())
				Expect(item.DateText).To(Equal("31.02.2024"))
				Expect(item.ReceiptNumber).To(Equal("7"))
			}
			Expect(result.Items[0].Description).To(Equal("Egg 12 stk"))
			Expect(result.Items[0].Amount.Decimal.StringFixed(2)).To(Equal("46.00"))
		})

		It("does not affect the next receipt", func() {
			item := result.Items[2]
			Expect(item.Valid()).To(BeTrue())
			Expect(item.ReceiptNumber).To(Equal("8"))
			Expect(item.HasDate()).To(BeTrue())
		})
	})

	When("the text contains no receipt data", func() {
		BeforeEach(func() {
			lines = textLines(
				"Takk for handelen!",
				"Kundeservice: ring oss",
				"Velkommen tilbake",
			)
		})

		It("returns ErrNoInvoiceData", func() {
			Expect(err).To(MatchError(ErrNoInvoiceData))
			Expect(result).To(BeNil())
		})
	})

	When("there are no lines", func() {
		BeforeEach(func() {
			lines = nil
		})

		It("returns ErrNoInvoiceData", func() {
			Expect(err).To(MatchError(ErrNoInvoiceData))
		})
	})

	When("the document ends without a terminator", func() {
		BeforeEach(func() {
			lines = textLines(
				"12.03.2024  Kvittering 5  Ansvarlig: Ola",
				"7038010021145  Melk 1L  1  20,00  25%  25,00",
			)
		})

		It("still emits the open receipt", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Items).To(HaveLen(1))
			Expect(result.Items[0].ReceiptNumber).To(Equal("5"))
			Expect(result.Items[0].Valid()).To(BeTrue())
		})
	})

	When("items appear without any header or sum line", func() {
		BeforeEach(func() {
			lines = textLines(
				"7038010021145  Melk 1L  1  20,00  25%  25,00",
			)
		})

		It("flags the missing receipt fields", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Items[0].Flags).To(ConsistOf(FlagMissingDate, FlagMissingReceipt))
		})
	})

	When("a new header appears before the terminator", func() {
		BeforeEach(func() {
			lines = textLines(
				"12.03.2024  Kvittering 1  Ansvarlig: Ola",
				"7038010021145  Melk 1L  1  20,00  25%  25,00",
				"13.03.2024  Kvittering 2  Ansvarlig: Kari",
				"7041500001237  Brød  1  40,00  15%  46,00",
			)
		})

		It("closes the first receipt implicitly", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Receipts).To(HaveLen(2))
			Expect(result.Items[0].ReceiptNumber).To(Equal("1"))
			Expect(result.Items[0].Responsible).To(Equal("Ola"))
			Expect(result.Items[1].ReceiptNumber).To(Equal("2"))
			Expect(result.Items[1].Responsible).To(Equal("Kari"))
		})
	})

	When("a totals section follows the items", func() {
		BeforeEach(func() {
			lines = textLines(
				"12.03.2024  Kvittering 9  Ansvarlig: Ola",
				"7038010021145  Melk 1L  1  20,00  25%  25,00",
				"Grunnlag 25%  20,00",
				"7038271007896  Kaffe  1  80,00  25%  100,00",
				"Totalt 25,00",
			)
		})

		It("ignores item-like lines until the terminator", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Items).To(HaveLen(1))
			Expect(result.Items[0].Description).To(Equal("Melk 1L"))
		})

		It("reads the declared total from the terminator", func() {
			Expect(result.Receipts[0].DeclaredTotal.Decimal.StringFixed(2)).To(Equal("25.00"))
			Expect(result.Receipts[0].Reconciled()).To(BeTrue())
		})
	})

	When("amounts are grouped with spaces", func() {
		BeforeEach(func() {
			lines = textLines(
				"12.03.2024  Kvittering 9  Ansvarlig: Ola",
				"7038010021145  Grill  1  987,60  25%  1 234,50",
				"Totalt 1 234,50",
			)
		})

		It("should keep the grouped amount in one column", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Items).To(HaveLen(1))
			item := result.Items[0]
			Expect(item.Description).To(Equal("Grill"))
			Expect(item.UnitPrice.Decimal.StringFixed(2)).To(Equal("987.60"))
			Expect(item.VatRate).To(Equal(Vat25))
			Expect(item.Amount.Decimal.StringFixed(2)).To(Equal("1234.50"))
			Expect(item.Valid()).To(BeTrue())
		})

		It("should put the amount in the 25% bucket", func() {
			summary := Summarize(result.Items)
			Expect(summary.Sum25.StringFixed(2)).To(Equal("1234.50"))
			Expect(summary.Sum15.IsZero()).To(BeTrue())
			Expect(summary.Sum0.IsZero()).To(BeTrue())
		})

		It("should reconcile against a grouped declared total", func() {
			Expect(result.Receipts[0].DeclaredTotal.Decimal.StringFixed(2)).To(Equal("1234.50"))
			Expect(result.Receipts[0].Reconciled()).To(BeTrue())
		})
	})

	When("a single-space row has grouped price and amount", func() {
		BeforeEach(func() {
			lines = textLines(
				"12.03.2024  Kvittering 9  Ansvarlig: Ola",
				"7038010021145 Grill 1 1 987,60 25% 2 484,50",
				"SLUTT",
			)
		})

		It("should read both grouped numbers", func() {
			Expect(err).NotTo(HaveOccurred())
			item := result.Items[0]
			Expect(item.Description).To(Equal("Grill"))
			Expect(item.Quantity.Decimal.StringFixed(0)).To(Equal("1"))
			Expect(item.UnitPrice.Decimal.StringFixed(2)).To(Equal("1987.60"))
			Expect(item.VatRate).To(Equal(Vat25))
			Expect(item.Amount.Decimal.StringFixed(2)).To(Equal("2484.50"))
			Expect(item.Flags).To(BeEmpty())
		})
	})

	When("a numeric field is damaged", func() {
		BeforeEach(func() {
			lines = textLines(
				"12.03.2024  Kvittering 3  Ansvarlig: Ola",
				"7038010021145  Melk 1L  1  20,00  25%  25,0O",
				"SLUTT",
			)
		})

		It("keeps the item and flags the field", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Items).To(HaveLen(1))
			Expect(result.Items[0].Amount.Valid).To(BeFalse())
			Expect(result.Items[0].Flags).To(ConsistOf(FlagInvalidAmount))
		})
	})

	When("the VAT rate is not 25, 15 or 0", func() {
		BeforeEach(func() {
			lines = textLines(
				"12.03.2024  Kvittering 3  Ansvarlig: Ola",
				"7038010021145  Melk 1L  1  20,00  12%  22,40",
				"SLUTT",
			)
		})

		It("flags the rate and keeps the amount", func() {
			item := result.Items[0]
			Expect(item.VatRate).To(Equal(VatRate(12)))
			Expect(item.Flags).To(ConsistOf(FlagUnknownVatRate))
			Expect(item.Amount.Decimal.StringFixed(2)).To(Equal("22.40"))
		})
	})

	When("the VAT rate overflows an integer", func() {
		BeforeEach(func() {
			lines = textLines(
				"12.03.2024  Kvittering 3  Ansvarlig: Ola",
				"7038010021145  Melk 1L  1  20,00  18446744073709551641%  25,00",
				"SLUTT",
			)
		})

		It("should flag the rate and keep the amount out of the 25% bucket", func() {
			item := result.Items[0]
			Expect(item.VatRate).To(Equal(VatUnknown))
			Expect(item.HasFlag(FlagUnknownVatRate)).To(BeTrue())

			summary := Summarize(result.Items)
			Expect(summary.Sum25.IsZero()).To(BeTrue())
			Expect(summary.ExcludedCount).To(Equal(1))
		})
	})

	When("the printed amount disagrees with quantity and price", func() {
		BeforeEach(func() {
			lines = textLines(
				"12.03.2024  Kvittering 3  Ansvarlig: Ola",
				"7038010021145  Melk 1L  1  20,00  25%  30,00",
				"SLUTT",
			)
		})

		It("flags an amount mismatch", func() {
			Expect(result.Items[0].Flags).To(ConsistOf(FlagAmountMismatch))
		})
	})

	When("the quantity column is absent", func() {
		BeforeEach(func() {
			lines = textLines(
				"12.03.2024  Kvittering 3  Ansvarlig: Ola",
				"7038010021145  Melk 1L  20,00  25%  25,00",
				"SLUTT",
			)
		})

		It("defaults the quantity to one", func() {
			Expect(err).NotTo(HaveOccurred())
			item := result.Items[0]
			Expect(item.Description).To(Equal("Melk 1L"))
			Expect(item.Quantity.Decimal.StringFixed(0)).To(Equal("1"))
			Expect(item.Valid()).To(BeTrue())
		})
	})

	When("the EAN is short", func() {
		BeforeEach(func() {
			lines = textLines(
				"12.03.2024  Kvittering 3  Ansvarlig: Ola",
				"12345  Pant  1  2,00  0%  2,00",
				"SLUTT",
			)
		})

		It("keeps the item with a short_ean flag", func() {
			Expect(result.Items).To(HaveLen(1))
			Expect(result.Items[0].EAN).To(Equal("12345"))
			Expect(result.Items[0].Flags).To(ConsistOf(FlagShortEAN))
		})
	})

	It("is deterministic", func() {
		input := textLines(
			"12.03.2024  Kvittering 1  Ansvarlig: Ola",
			"7038010021145  Melk 1L  1  20,00  25%  25,00",
			"7041500001237  Brød  1  40,00  15%  46,00",
			"SLUTT",
		)
		first, err := Parse(input)
		Expect(err).NotTo(HaveOccurred())
		second, err := Parse(input)
		Expect(err).NotTo(HaveOccurred())
		Expect(second).To(Equal(first))
	})
})

var _ = Describe("Convert", func() {
	It("aggregates the parsed items", func() {
		result, err := Convert(textLines(
			"12.03.2024  Kvittering 00123  Ansvarlig: Ola",
			"7038010021145  Melk 1L  1  20.00  25%  25.00",
			"SLUTT",
		))
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Summary.Sum25.StringFixed(2)).To(Equal("25.00"))
		Expect(result.Summary.Sum15.StringFixed(2)).To(Equal("0.00"))
		Expect(result.Summary.Sum0.StringFixed(2)).To(Equal("0.00"))
		Expect(result.Summary.Total.StringFixed(2)).To(Equal("25.00"))
		Expect(result.FlaggedCount()).To(Equal(0))
	})

	It("passes ErrNoInvoiceData through", func() {
		_, err := Convert(textLines("ingen varer her"))
		Expect(err).To(MatchError(ErrNoInvoiceData))
	})
})
