package cache

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cachesim/mem/cache/internal/tagging"
)

var _ = Describe("Builder", func() {
	var builder Builder

	BeforeEach(func() {
		builder = MakeBuilder().
			WithLog2NumSets(4).
			WithWayAssociativity(2).
			WithLog2BlockSize(4)
	})

	It("should build an empty model", func() {
		m, err := builder.Build("Cache")

		Expect(err).NotTo(HaveOccurred())
		Expect(m.Name()).To(Equal("Cache"))
		Expect(m.NumSets()).To(Equal(16))
		Expect(m.NumWays()).To(Equal(2))
		Expect(m.BlockSize()).To(Equal(uint64(16)))
		Expect(m.Policy()).To(Equal("mru"))
		Expect(m.Stats()).To(BeZero())
		Expect(m.victimFinder).To(BeAssignableToTypeOf(&tagging.MRUVictimFinder{}))
	})

	It("should build a model with the lru policy", func() {
		m, err := builder.WithReplacePolicy("lru").Build("Cache")

		Expect(err).NotTo(HaveOccurred())
		Expect(m.victimFinder).To(BeAssignableToTypeOf(&tagging.LRUVictimFinder{}))
	})

	DescribeTable("should reject invalid configurations",
		func(b Builder, field string) {
			m, err := b.Build("Cache")

			Expect(m).To(BeNil())

			var configErr *ConfigError
			Expect(errors.As(err, &configErr)).To(BeTrue())
			Expect(configErr.Field).To(Equal(field))
		},
		Entry("zero set bits",
			MakeBuilder().WithLog2NumSets(0).WithWayAssociativity(1).WithLog2BlockSize(1), "s"),
		Entry("negative set bits",
			MakeBuilder().WithLog2NumSets(-1).WithWayAssociativity(1).WithLog2BlockSize(1), "s"),
		Entry("zero block bits",
			MakeBuilder().WithLog2NumSets(1).WithWayAssociativity(1).WithLog2BlockSize(0), "b"),
		Entry("zero associativity",
			MakeBuilder().WithLog2NumSets(1).WithWayAssociativity(0).WithLog2BlockSize(1), "E"),
		Entry("too many sets",
			MakeBuilder().WithLog2NumSets(25).WithWayAssociativity(1).WithLog2BlockSize(1), "s"),
		Entry("too many lines",
			MakeBuilder().WithLog2NumSets(24).WithWayAssociativity(1<<40).WithLog2BlockSize(1), "E"),
		Entry("too many lines for the number of sets",
			MakeBuilder().WithLog2NumSets(4).WithWayAssociativity(1<<20+1).WithLog2BlockSize(1), "E"),
		Entry("fields wider than an address",
			MakeBuilder().WithLog2NumSets(20).WithWayAssociativity(1).WithLog2BlockSize(45), "b"),
		Entry("unknown policy",
			MakeBuilder().WithLog2NumSets(1).WithWayAssociativity(1).WithLog2BlockSize(1).
				WithReplacePolicy("fifo"), "policy"),
	)

	It("should describe the rejected value", func() {
		_, err := MakeBuilder().WithWayAssociativity(1).WithLog2BlockSize(1).Build("Cache")

		Expect(err).To(MatchError("invalid cache config: s=0: must be positive"))
	})
})
