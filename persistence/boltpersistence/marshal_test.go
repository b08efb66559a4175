package boltpersistence

import (
	"errors"

	"github.com/dogmatiq/herald/internal/x/bboltx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("func unmarshalUint64()", func() {
	It("panics if the byte-slice is the wrong length", func() {
		Expect(func() {
			unmarshalUint64(make([]byte, 3))
		}).To(PanicWith(
			bboltx.PanicSentinel{
				Cause: errors.New("data is corrupt, expected 8 bytes, got 3"),
			},
		))
	})

	It("treats an absent value as zero", func() {
		Expect(unmarshalUint64(nil)).To(BeZero())
	})

	It("round-trips the value produced by marshalUint64()", func() {
		Expect(unmarshalUint64(marshalUint64(42))).To(BeEquivalentTo(42))
	})
})
