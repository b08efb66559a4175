package memorycache_test

import (
	. "github.com/dogmatiq/herald/region/memorycache"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("func NewLRU()", func() {
	var cache Cache

	BeforeEach(func() {
		cache = NewLRU(3)
	})

	It("stores and retrieves entries", func() {
		cache.Set("<key>", "<value>")

		v, ok := cache.Get("<key>")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal("<value>"))
	})

	It("reports a miss for an unknown key", func() {
		_, ok := cache.Get("<key>")
		Expect(ok).To(BeFalse())
	})

	It("removes entries", func() {
		cache.Set("<key>", "<value>")
		cache.Remove("<key>")

		_, ok := cache.Get("<key>")
		Expect(ok).To(BeFalse())
	})

	It("clears all entries", func() {
		cache.Set("<key-a>", "<value>")
		cache.Set("<key-b>", "<value>")
		cache.Clear()

		_, ok := cache.Get("<key-a>")
		Expect(ok).To(BeFalse())

		_, ok = cache.Get("<key-b>")
		Expect(ok).To(BeFalse())
	})

	It("evicts the least-recently-used entry when full", func() {
		cache.Set("<key-a>", "<value>")
		cache.Set("<key-b>", "<value>")
		cache.Set("<key-c>", "<value>")

		// Use key-a so that key-b becomes the eviction candidate.
		cache.Get("<key-a>")

		cache.Set("<key-d>", "<value>")

		_, ok := cache.Get("<key-b>")
		Expect(ok).To(BeFalse())

		_, ok = cache.Get("<key-a>")
		Expect(ok).To(BeTrue())
	})

	It("panics if the capacity is not positive", func() {
		Expect(func() {
			NewLRU(0)
		}).To(Panic())
	})
})

var _ = Describe("func NewLFU()", func() {
	var cache Cache

	BeforeEach(func() {
		cache = NewLFU(LFUConfig{MaxEntries: 100})
	})

	It("stores and retrieves entries", func() {
		cache.Set("<key>", "<value>")

		v, ok := cache.Get("<key>")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal("<value>"))
	})

	It("reports a miss for an unknown key", func() {
		_, ok := cache.Get("<key>")
		Expect(ok).To(BeFalse())
	})

	It("removes entries", func() {
		cache.Set("<key>", "<value>")
		cache.Remove("<key>")

		_, ok := cache.Get("<key>")
		Expect(ok).To(BeFalse())
	})

	It("clears all entries", func() {
		cache.Set("<key-a>", "<value>")
		cache.Set("<key-b>", "<value>")
		cache.Clear()

		_, ok := cache.Get("<key-a>")
		Expect(ok).To(BeFalse())

		_, ok = cache.Get("<key-b>")
		Expect(ok).To(BeFalse())
	})

	It("panics if the entry bound is not positive", func() {
		Expect(func() {
			NewLFU(LFUConfig{})
		}).To(Panic())
	})
})
