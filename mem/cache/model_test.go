package cache

import (
	"math/rand"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/cachesim/instrumentation/hooking"
	"github.com/sarchlab/cachesim/mem/cache/internal/tagging"
)

func mustBuild(s, e, b int) *Model {
	m, err := MakeBuilder().
		WithLog2NumSets(s).
		WithWayAssociativity(e).
		WithLog2BlockSize(b).
		Build("Cache")
	Expect(err).NotTo(HaveOccurred())

	return m
}

var _ = Describe("Model", func() {
	Context("direct mapped, 2 sets, 2-byte blocks", func() {
		var m *Model

		BeforeEach(func() {
			m = mustBuild(1, 1, 1)
		})

		It("should miss twice on blocks in different sets", func() {
			Expect(m.Access(0x0)).To(Equal(MissFill))
			Expect(m.Access(0x2)).To(Equal(MissFill))

			Expect(m.Stats()).To(Equal(Stats{Hits: 0, Misses: 2, Evictions: 0}))
		})

		It("should hit on the other byte of a resident block", func() {
			m.Access(0x4)

			Expect(m.Access(0x5)).To(Equal(Hit))
		})

		It("should evict on every miss to a filled set", func() {
			Expect(m.Access(0x0)).To(Equal(MissFill))
			Expect(m.Access(0x4)).To(Equal(MissEvict))
			Expect(m.Access(0x8)).To(Equal(MissEvict))
			Expect(m.Access(0x0)).To(Equal(MissEvict))

			Expect(m.Stats()).To(Equal(Stats{Misses: 4, Evictions: 3}))
		})

		It("should count every access as a hit or a miss", func() {
			r := rand.New(rand.NewSource(1))
			for i := 0; i < 1000; i++ {
				m.Access(uint64(r.Intn(64)))
			}

			stats := m.Stats()
			Expect(stats.Hits + stats.Misses).To(Equal(uint64(1000)))
			Expect(stats.Accesses()).To(Equal(uint64(1000)))
			Expect(stats.Evictions).To(BeNumerically("<=", stats.Misses))
		})
	})

	Context("2-way sets", func() {
		var m *Model

		const (
			tagA = 0x0
			tagB = 0x4
			tagC = 0x8
		)

		BeforeEach(func() {
			m = mustBuild(1, 2, 1)
		})

		It("should not evict while the set has an empty line", func() {
			Expect(m.Access(tagA)).To(Equal(MissFill))
			Expect(m.Access(tagB)).To(Equal(MissFill))
			Expect(m.Stats().Evictions).To(BeZero())
		})

		It("should evict the most recently used line", func() {
			m.Access(tagA)
			m.Access(tagB)
			Expect(m.Access(tagA)).To(Equal(Hit))

			Expect(m.Access(tagC)).To(Equal(MissEvict))

			Expect(m.Access(tagB)).To(Equal(Hit))
			Expect(m.Access(tagA)).To(Equal(MissEvict))
		})

		It("should evict the line filled last when no line was hit", func() {
			m.Access(tagA)
			m.Access(tagB)

			Expect(m.Access(tagC)).To(Equal(MissEvict))

			Expect(m.Access(tagA)).To(Equal(Hit))
			Expect(m.Access(tagB)).To(Equal(MissEvict))
		})

		It("should keep hitting a resident block", func() {
			m.Access(tagB)

			for i := 0; i < 5; i++ {
				Expect(m.Access(tagB)).To(Equal(Hit))
			}

			Expect(m.Stats()).To(Equal(Stats{Hits: 5, Misses: 1}))
		})

		It("should not let one set evict from another", func() {
			m.Access(0x0)
			m.Access(0x4)
			m.Access(0x2)
			m.Access(0x6)

			Expect(m.Stats().Evictions).To(BeZero())
			Expect(m.Access(0x0)).To(Equal(Hit))
			Expect(m.Access(0x6)).To(Equal(Hit))
		})
	})

	It("should evict the least recently used line under the lru policy", func() {
		m, err := MakeBuilder().
			WithLog2NumSets(1).
			WithWayAssociativity(2).
			WithLog2BlockSize(1).
			WithReplacePolicy("lru").
			Build("Cache")
		Expect(err).NotTo(HaveOccurred())

		m.Access(0x0)
		m.Access(0x4)
		m.Access(0x0)
		Expect(m.Access(0x8)).To(Equal(MissEvict))

		Expect(m.Access(0x0)).To(Equal(Hit))
		Expect(m.Access(0x4)).To(Equal(MissEvict))
	})

	It("should stamp lines with a clock that starts at 1", func() {
		m := mustBuild(1, 2, 1)

		m.Access(0x0)
		m.Access(0x2)
		m.Access(0x0)

		snapshot := m.Snapshot()
		Expect(snapshot.Sets[0].Lines[0]).To(Equal(
			LineState{Valid: true, Tag: 0, Recency: 3}))
		Expect(snapshot.Sets[1].Lines[0]).To(Equal(
			LineState{Valid: true, Tag: 0, Recency: 2}))
		Expect(snapshot.Sets[0].Lines[1]).To(BeZero())
	})

	It("should not allocate on access", func() {
		m := mustBuild(4, 4, 4)

		allocs := testing.AllocsPerRun(100, func() {
			m.Access(0x1234)
			m.Access(0x99999)
		})

		Expect(allocs).To(BeZero())
	})

	It("should reset", func() {
		m := mustBuild(2, 2, 2)
		m.Access(0x10)
		m.Access(0x10)

		m.Reset()

		Expect(m.Stats()).To(BeZero())
		Expect(m.Access(0x10)).To(Equal(MissFill))
		Expect(m.Snapshot().Sets[0].Lines[0].Recency).To(Equal(uint64(1)))
	})

	It("should return a snapshot that does not alias the model", func() {
		m := mustBuild(1, 1, 1)
		m.Access(0x0)

		snapshot := m.Snapshot()
		snapshot.Sets[0].Lines[0].Tag = 0xff

		Expect(m.Access(0x0)).To(Equal(Hit))

		set, ok := snapshot.Set(1)
		Expect(ok).To(BeTrue())
		Expect(set.Index).To(Equal(uint64(1)))
		_, ok = snapshot.Set(2)
		Expect(ok).To(BeFalse())
	})

	Context("with a mocked victim finder", func() {
		var (
			mockCtrl     *gomock.Controller
			victimFinder *MockVictimFinder
			m            *Model
		)

		BeforeEach(func() {
			mockCtrl = gomock.NewController(GinkgoT())
			victimFinder = NewMockVictimFinder(mockCtrl)
			m = mustBuild(2, 4, 2)
			m.victimFinder = victimFinder
		})

		AfterEach(func() {
			mockCtrl.Finish()
		})

		It("should install the block into the chosen empty line", func() {
			victimFinder.EXPECT().
				FindVictim(m.tags, 1).
				Return(tagging.Block{SetID: 1, WayID: 3})

			Expect(m.Access(0x14)).To(Equal(MissFill))

			line := m.Snapshot().Sets[1].Lines[3]
			Expect(line).To(Equal(LineState{Valid: true, Tag: 1, Recency: 1}))
		})

		It("should count an eviction when the chosen line is valid", func() {
			m.tags.Update(tagging.Block{
				SetID: 0, WayID: 2, Tag: 7, IsValid: true, Recency: 1,
			})
			victimFinder.EXPECT().
				FindVictim(m.tags, 0).
				Return(m.tags.GetSet(0).Blocks[2])

			Expect(m.Access(0x0)).To(Equal(MissEvict))

			Expect(m.Stats().Evictions).To(Equal(uint64(1)))
			Expect(m.Snapshot().Sets[0].Lines[2].Tag).To(Equal(uint64(0)))
		})

		It("should not consult the victim finder on a hit", func() {
			m.tags.Update(tagging.Block{
				SetID: 0, WayID: 0, Tag: 0, IsValid: true, Recency: 1,
			})

			Expect(m.Access(0x0)).To(Equal(Hit))
		})
	})

	Context("with hooks", func() {
		var (
			mockCtrl *gomock.Controller
			hook     *MockHook
			m        *Model
		)

		BeforeEach(func() {
			mockCtrl = gomock.NewController(GinkgoT())
			hook = NewMockHook(mockCtrl)
			m = mustBuild(1, 1, 1)
			m.AcceptHook(hook)
		})

		AfterEach(func() {
			mockCtrl.Finish()
		})

		It("should report each access", func() {
			hook.EXPECT().Func(hooking.HookCtx{
				Domain: m,
				Pos:    HookPosAccess,
				Item: AccessEvent{
					Address: 0x1, SetIndex: 0, Tag: 0, Result: MissFill,
				},
			})
			hook.EXPECT().Func(hooking.HookCtx{
				Domain: m,
				Pos:    HookPosAccess,
				Item: AccessEvent{
					Address: 0x4, SetIndex: 0, Tag: 1, Result: MissEvict,
					EvictedTag: 0,
				},
			})
			hook.EXPECT().Func(hooking.HookCtx{
				Domain: m,
				Pos:    HookPosAccess,
				Item: AccessEvent{
					Address: 0x5, SetIndex: 0, Tag: 1, Result: Hit,
				},
			})

			m.Access(0x1)
			m.Access(0x4)
			m.Access(0x5)
		})
	})
})

var _ = Describe("AccessResult", func() {
	It("should print the way the verbose trace does", func() {
		Expect(Hit.String()).To(Equal("hit"))
		Expect(MissFill.String()).To(Equal("miss"))
		Expect(MissEvict.String()).To(Equal("miss eviction"))
		Expect(Hit.IsMiss()).To(BeFalse())
		Expect(MissEvict.IsMiss()).To(BeTrue())
	})
})
