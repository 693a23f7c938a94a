package lineitem

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Reconcile", func() {
	var entries []CanonicalEntry

	BeforeEach(func() {
		entries = []CanonicalEntry{
			{Description: "MILK", TotalAmount: 2.99},
			{Description: "BREAD", TotalAmount: 4.51},
			{Description: "EGGS", TotalAmount: 2.50},
		}
	})

	When("the reported total is within tolerance", func() {
		It("does not flag a mismatch", func() {
			subtotal, mismatch := Reconcile(entries, floatPtr(10.01), DefaultTolerance)
			Expect(subtotal).To(Equal(10.00))
			Expect(mismatch).To(BeFalse())
		})
	})

	When("the reported total drifts beyond tolerance", func() {
		It("flags a mismatch", func() {
			subtotal, mismatch := Reconcile(entries, floatPtr(10.05), DefaultTolerance)
			Expect(subtotal).To(Equal(10.00))
			Expect(mismatch).To(BeTrue())
		})
	})

	When("no total was reported", func() {
		It("computes the subtotal and never flags", func() {
			subtotal, mismatch := Reconcile(entries, nil, DefaultTolerance)
			Expect(subtotal).To(Equal(10.00))
			Expect(mismatch).To(BeFalse())
		})
	})

	When("there are no entries", func() {
		It("reconciles an empty receipt against a zero total", func() {
			subtotal, mismatch := Reconcile(nil, floatPtr(0), DefaultTolerance)
			Expect(subtotal).To(BeZero())
			Expect(mismatch).To(BeFalse())
		})
	})
})
