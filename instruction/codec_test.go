package instruction_test

import (
	. "github.com/dogmatiq/herald/instruction"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("func MarshalItems()", func() {
	It("encodes items using their stable operation names", func() {
		data, err := MarshalItems([]Item{
			{
				Region:   "<region>",
				Op:       RefreshByID,
				TargetID: "<target>",
			},
		})

		Expect(err).ShouldNot(HaveOccurred())
		Expect(string(data)).To(MatchJSON(
			`[{"region": "<region>", "op": "refresh-by-id", "target_id": "<target>"}]`,
		))
	})

	It("returns an error if there are no items", func() {
		_, err := MarshalItems(nil)
		Expect(err).To(MatchError("can not marshal an empty set of items"))
	})

	It("returns an error if any item is invalid", func() {
		_, err := MarshalItems([]Item{
			{
				Region: "<region>",
				Op:     RefreshByID,
			},
		})

		Expect(err).Should(HaveOccurred())
	})
})

var _ = Describe("func UnmarshalItems()", func() {
	It("round-trips items produced by MarshalItems()", func() {
		items := []Item{
			{
				Region:   "<region>",
				Op:       RemoveByID,
				TargetID: "<target>",
			},
			{
				Region:     "<other>",
				Op:         RefreshByType,
				TargetType: "<type>",
			},
			{
				Region: "<region>",
				Op:     RefreshAll,
			},
		}

		data, err := MarshalItems(items)
		Expect(err).ShouldNot(HaveOccurred())

		decoded, err := UnmarshalItems(data)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(decoded).To(Equal(items))
	})

	It("returns an error if the payload is not valid JSON", func() {
		_, err := UnmarshalItems([]byte("{"))
		Expect(err).Should(HaveOccurred())
	})

	It("returns an error if the payload contains unrecognized fields", func() {
		_, err := UnmarshalItems([]byte(
			`[{"region": "<region>", "op": "refresh-all", "unknown": true}]`,
		))

		Expect(err).Should(HaveOccurred())
	})

	It("returns an error if the payload is empty", func() {
		_, err := UnmarshalItems([]byte(`[]`))
		Expect(err).To(MatchError("item payload is empty"))
	})

	It("returns an error if any decoded item is invalid", func() {
		_, err := UnmarshalItems([]byte(
			`[{"region": "", "op": "refresh-all"}]`,
		))

		Expect(err).To(MatchError("item must have a region"))
	})
})
