package checkpoint_test

import (
	"sync"

	. "github.com/dogmatiq/herald/checkpoint"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type Checkpoint", func() {
	var cp *Checkpoint

	BeforeEach(func() {
		cp = &Checkpoint{}
	})

	Describe("func Current()", func() {
		It("returns zero before any instruction is processed", func() {
			Expect(cp.Current()).To(BeZero())
		})
	})

	Describe("func Advance()", func() {
		It("advances to the given ID", func() {
			cp.Advance(3)

			Expect(cp.Current()).To(BeEquivalentTo(3))
		})

		It("does not regress", func() {
			cp.Advance(3)
			cp.Advance(2)

			Expect(cp.Current()).To(BeEquivalentTo(3))
		})

		It("retains the largest ID under concurrent advancement", func() {
			var g sync.WaitGroup

			for id := uint64(1); id <= 100; id++ {
				id := id
				g.Add(1)
				go func() {
					defer g.Done()
					cp.Advance(id)
				}()
			}

			g.Wait()

			Expect(cp.Current()).To(BeEquivalentTo(100))
		})
	})
})
