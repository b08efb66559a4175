package memorycache_test

import (
	"context"
	"errors"

	"github.com/dogmatiq/herald/instruction"
	. "github.com/dogmatiq/herald/region/memorycache"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type Handler", func() {
	var (
		cache   Cache
		handler *Handler
	)

	BeforeEach(func() {
		cache = NewLRU(10)
		cache.Set("<target>", "<stale>")

		handler = &Handler{
			Cache: cache,
		}
	})

	Describe("func Apply()", func() {
		When("the item is a refresh-by-ID", func() {
			item := instruction.Item{
				Region:   "<region>",
				Op:       instruction.RefreshByID,
				TargetID: "<target>",
			}

			It("removes the entry if no loader is configured", func() {
				err := handler.Apply(context.Background(), item)
				Expect(err).ShouldNot(HaveOccurred())

				_, ok := cache.Get("<target>")
				Expect(ok).To(BeFalse())
			})

			It("repopulates the entry using the loader", func() {
				handler.Loader = func(
					_ context.Context,
					id string,
				) (any, error) {
					Expect(id).To(Equal("<target>"))
					return "<fresh>", nil
				}

				err := handler.Apply(context.Background(), item)
				Expect(err).ShouldNot(HaveOccurred())

				v, ok := cache.Get("<target>")
				Expect(ok).To(BeTrue())
				Expect(v).To(Equal("<fresh>"))
			})

			It("returns an error if the loader fails", func() {
				handler.Loader = func(
					context.Context,
					string,
				) (any, error) {
					return nil, errors.New("<error>")
				}

				err := handler.Apply(context.Background(), item)
				Expect(err).To(MatchError("<error>"))

				_, ok := cache.Get("<target>")
				Expect(ok).To(BeFalse())
			})
		})

		When("the item is a remove-by-ID", func() {
			item := instruction.Item{
				Region:   "<region>",
				Op:       instruction.RemoveByID,
				TargetID: "<target>",
			}

			It("removes the entry", func() {
				err := handler.Apply(context.Background(), item)
				Expect(err).ShouldNot(HaveOccurred())

				_, ok := cache.Get("<target>")
				Expect(ok).To(BeFalse())
			})

			It("does nothing if the entry is absent", func() {
				cache.Remove("<target>")

				err := handler.Apply(context.Background(), item)
				Expect(err).ShouldNot(HaveOccurred())
			})
		})

		When("the item is a refresh-by-type", func() {
			It("clears the cache", func() {
				cache.Set("<other>", "<value>")

				err := handler.Apply(
					context.Background(),
					instruction.Item{
						Region:     "<region>",
						Op:         instruction.RefreshByType,
						TargetType: "<type>",
					},
				)
				Expect(err).ShouldNot(HaveOccurred())

				_, ok := cache.Get("<target>")
				Expect(ok).To(BeFalse())

				_, ok = cache.Get("<other>")
				Expect(ok).To(BeFalse())
			})
		})

		When("the item is a refresh-all", func() {
			It("clears the cache", func() {
				err := handler.Apply(
					context.Background(),
					instruction.Item{
						Region: "<region>",
						Op:     instruction.RefreshAll,
					},
				)
				Expect(err).ShouldNot(HaveOccurred())

				_, ok := cache.Get("<target>")
				Expect(ok).To(BeFalse())
			})
		})
	})
})
