package conversion

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BoltDB", func() {
	var (
		tmpDir string
		dbPath string
		db     *BoltDB
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		dbPath = filepath.Join(tmpDir, "test.db")
		var err error
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	newRecord := func(id string, createdAt time.Time) *Conversion {
		return &Conversion{
			ID:             id,
			SourceFilename: id + ".pdf",
			OutputFilename: id + "_konvertert.xlsx",
			StoragePath:    id + "_" + id + "_konvertert.xlsx",
			ItemCount:      3,
			Sum25:          "125.00",
			Sum15:          "46.00",
			Sum0:           "0.00",
			Total:          "171.00",
			CreatedAt:      createdAt,
		}
	}

	Describe("SaveConversion and GetConversion", func() {
		var saved *Conversion

		BeforeEach(func() {
			saved = newRecord("abc", time.Date(2024, 3, 12, 8, 0, 0, 0, time.UTC))
			Expect(db.SaveConversion(saved)).To(Succeed())
		})

		It("should round-trip the record", func() {
			got, err := db.GetConversion("abc")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.SourceFilename).To(Equal("abc.pdf"))
			Expect(got.Total).To(Equal("171.00"))
			Expect(got.ItemCount).To(Equal(3))
			Expect(got.CreatedAt.Equal(saved.CreatedAt)).To(BeTrue())
		})

		It("should return ErrNotFound for unknown IDs", func() {
			_, err := db.GetConversion("nope")
			Expect(err).To(MatchError(ErrNotFound))
		})

		It("should persist across reopen", func() {
			Expect(db.Close()).To(Succeed())

			var err error
			db, err = NewBoltDB(dbPath)
			Expect(err).NotTo(HaveOccurred())

			got, err := db.GetConversion("abc")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal("abc"))
		})
	})

	Describe("ListConversions", func() {
		When("the database is empty", func() {
			It("should return an empty, non-nil slice", func() {
				conversions, err := db.ListConversions()
				Expect(err).NotTo(HaveOccurred())
				Expect(conversions).NotTo(BeNil())
				Expect(conversions).To(BeEmpty())
			})
		})

		When("several conversions exist", func() {
			BeforeEach(func() {
				base := time.Date(2024, 3, 12, 8, 0, 0, 0, time.UTC)
				Expect(db.SaveConversion(newRecord("old", base))).To(Succeed())
				Expect(db.SaveConversion(newRecord("new", base.Add(2*time.Hour)))).To(Succeed())
				Expect(db.SaveConversion(newRecord("mid", base.Add(time.Hour)))).To(Succeed())
			})

			It("should return them newest first", func() {
				conversions, err := db.ListConversions()
				Expect(err).NotTo(HaveOccurred())
				ids := make([]string, len(conversions))
				for i, c := range conversions {
					ids[i] = c.ID
				}
				Expect(ids).To(Equal([]string{"new", "mid", "old"}))
			})
		})
	})

	Describe("DeleteConversion", func() {
		BeforeEach(func() {
			Expect(db.SaveConversion(newRecord("abc", time.Now()))).To(Succeed())
		})

		It("should remove the record", func() {
			Expect(db.DeleteConversion("abc")).To(Succeed())
			_, err := db.GetConversion("abc")
			Expect(err).To(MatchError(ErrNotFound))
		})

		It("should return ErrNotFound for unknown IDs", func() {
			Expect(db.DeleteConversion("nope")).To(MatchError(ErrNotFound))
		})
	})
})
