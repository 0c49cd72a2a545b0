package scheduler

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/mayant15/railcar-bench/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requests(cores ...int) []core.Request[int] {
	reqs := make([]core.Request[int], len(cores))
	for i, c := range cores {
		reqs[i] = core.Request[int]{Payload: i, Cores: c, Group: fmt.Sprintf("lib%d", i%2)}
	}
	return reqs
}

type placement struct {
	payload int
	cores   core.CoreSet
}

func placements(s core.Schedule[int]) [][]placement {
	out := make([][]placement, len(s))
	for i, w := range s {
		for _, j := range w {
			out[i] = append(out[i], placement{j.Payload, j.Cores})
		}
	}
	return out
}

func TestSchedule(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cores    []int
		capacity int
		expected [][]placement
	}{
		{
			name:     "SingleCoreJobsSpillIntoSecondWave",
			cores:    []int{1, 1, 1},
			capacity: 2,
			expected: [][]placement{
				{{0, core.CoreSet{0}}, {1, core.CoreSet{1}}},
				{{2, core.CoreSet{0}}},
			},
		},
		{
			name:     "NoBackfillIntoClosedWave",
			cores:    []int{2, 1},
			capacity: 2,
			expected: [][]placement{
				{{0, core.CoreSet{0, 1}}},
				{{1, core.CoreSet{0}}},
			},
		},
		{
			name:     "TrailingCapacityLeftUnused",
			cores:    []int{1, 2, 1},
			capacity: 2,
			expected: [][]placement{
				{{0, core.CoreSet{0}}},
				{{1, core.CoreSet{0, 1}}},
				{{2, core.CoreSet{0}}},
			},
		},
		{
			name:     "ExactFit",
			cores:    []int{2, 2, 4},
			capacity: 4,
			expected: [][]placement{
				{{0, core.CoreSet{0, 1}}, {1, core.CoreSet{2, 3}}},
				{{2, core.CoreSet{0, 1, 2, 3}}},
			},
		},
		{
			name:     "Empty",
			cores:    nil,
			capacity: 4,
			expected: [][]placement{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, err := Schedule(requests(tt.cores...), tt.capacity)
			require.NoError(t, err)
			require.NotNil(t, s)
			assert.Equal(t, tt.expected, placements(s))
		})
	}
}

func TestSchedule_CarriesGroup(t *testing.T) {
	t.Parallel()

	s, err := Schedule(requests(1, 1), 4)
	require.NoError(t, err)
	require.Len(t, s, 1)
	assert.Equal(t, "lib0", s[0][0].Group)
	assert.Equal(t, "lib1", s[0][1].Group)
}

func TestSchedule_ConfigurationError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cores    []int
		capacity int
		index    int
	}{
		{name: "Oversized", cores: []int{1, 3, 1}, capacity: 2, index: 1},
		{name: "Zero", cores: []int{1, 0}, capacity: 2, index: 1},
		{name: "Negative", cores: []int{-1}, capacity: 2, index: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, err := Schedule(requests(tt.cores...), tt.capacity)
			require.Error(t, err)
			assert.Nil(t, s)
			assert.ErrorIs(t, err, core.ErrConfiguration)

			var reqErr *core.RequestError
			require.ErrorAs(t, err, &reqErr)
			assert.Equal(t, tt.index, reqErr.Index)
		})
	}

	_, err := Schedule(requests(1), 0)
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

// TestSchedule_Properties checks the wave invariants over random inputs.
func TestSchedule_Properties(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(42, 7))
	for round := range 200 {
		capacity := 1 + rng.IntN(16)
		n := 1 + rng.IntN(40)
		cores := make([]int, n)
		for i := range cores {
			cores[i] = 1 + rng.IntN(capacity)
		}
		reqs := requests(cores...)

		s, err := Schedule(reqs, capacity)
		require.NoError(t, err, "round %d", round)

		jobs := s.Jobs()
		require.Len(t, jobs, n)
		for i, j := range jobs {
			assert.Equal(t, i, j.Payload, "order preserved")
			assert.Len(t, j.Cores, cores[i])
		}

		for w, wave := range s {
			assert.NotEmpty(t, wave)
			assert.LessOrEqual(t, wave.Cores(), capacity)

			union := map[int]bool{}
			for _, j := range wave {
				for _, c := range j.Cores {
					assert.False(t, union[c], "round %d wave %d reuses core %d", round, w, c)
					union[c] = true
				}
			}
			assert.Len(t, union, wave.Cores())
		}
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	reqs := requests(1, 1)

	t.Run("Overlap", func(t *testing.T) {
		s := core.Schedule[int]{{
			{Payload: 0, Cores: core.CoreSet{0}},
			{Payload: 1, Cores: core.CoreSet{0}},
		}}
		err := Validate(s, reqs, 2)
		assert.ErrorIs(t, err, core.ErrInvalidSchedule)
		assert.Contains(t, err.Error(), "share cores")
	})

	t.Run("MissingJob", func(t *testing.T) {
		s := core.Schedule[int]{{{Payload: 0, Cores: core.CoreSet{0}}}}
		err := Validate(s, reqs, 2)
		assert.ErrorIs(t, err, core.ErrInvalidSchedule)
		assert.Contains(t, err.Error(), "1 jobs for 2 requests")
	})

	t.Run("OverCapacity", func(t *testing.T) {
		s := core.Schedule[int]{{
			{Payload: 0, Cores: core.CoreSet{0}},
			{Payload: 1, Cores: core.CoreSet{1}},
		}}
		err := Validate(s, reqs, 1)
		assert.ErrorIs(t, err, core.ErrInvalidSchedule)
		assert.Contains(t, err.Error(), "capacity is 1")
	})

	t.Run("EmptyCoreSet", func(t *testing.T) {
		s := core.Schedule[int]{{
			{Payload: 0, Cores: core.CoreSet{0}},
			{Payload: 1, Cores: core.CoreSet{}},
		}}
		err := Validate(s, reqs, 2)
		assert.True(t, errors.Is(err, core.ErrInvalidSchedule))
		assert.Contains(t, err.Error(), "has no cores")
	})

	t.Run("Valid", func(t *testing.T) {
		s, err := Schedule(reqs, 2)
		require.NoError(t, err)
		assert.NoError(t, Validate(s, reqs, 2))
	})
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	s, err := Schedule(requests(1, 1, 1), 2)
	require.NoError(t, err)

	out := Describe(s, func(p int) string { return fmt.Sprintf("job%d", p) })
	assert.Equal(t, "wave 0 (2 cores): job0@0 job1@1\nwave 1 (1 cores): job2@0\n", out)
	assert.Empty(t, Describe(core.Schedule[int]{}, func(int) string { return "" }))
}
