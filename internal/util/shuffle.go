package util

import (
	"math/rand"
	"time"
)

// Shuffler 抽象乱序源，测试里注入固定种子可得到确定顺序
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

type seededShuffler struct {
	rng *rand.Rand
}

func NewShuffler(seed int64) Shuffler {
	return &seededShuffler{rng: rand.New(rand.NewSource(seed))}
}

func NewTimeShuffler() Shuffler {
	return NewShuffler(time.Now().UnixNano())
}

func (s *seededShuffler) Shuffle(n int, swap func(i, j int)) {
	s.rng.Shuffle(n, swap)
}
