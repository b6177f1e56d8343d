package params

// ChainConfig holds the chain id and the activation timestamps of the
// hardforks the execution core cares about. A nil timestamp means the fork
// never activates; a zero timestamp means it is active from genesis.
//
// The Optimism forks (Regolith, Canyon, Isthmus) are assumed active for any
// block the MegaEVM executes; the block executor asserts this at
// construction time rather than branching on them per opcode.
type ChainConfig struct {
	ChainID uint64

	RegolithTime *uint64
	CanyonTime   *uint64
	CancunTime   *uint64
	PragueTime   *uint64
	IsthmusTime  *uint64
	MiniRexTime  *uint64
}

// MegaChainConfig is the default configuration with every fork active from
// genesis, matching the production MegaETH chain.
var MegaChainConfig = &ChainConfig{
	ChainID:      6342,
	RegolithTime: newUint64(0),
	CanyonTime:   newUint64(0),
	CancunTime:   newUint64(0),
	PragueTime:   newUint64(0),
	IsthmusTime:  newUint64(0),
	MiniRexTime:  newUint64(0),
}

func newUint64(v uint64) *uint64 { return &v }

func isTimeActive(t *uint64, time uint64) bool {
	return t != nil && *t <= time
}

// IsRegolith reports whether Regolith is active at the given timestamp.
func (c *ChainConfig) IsRegolith(time uint64) bool { return isTimeActive(c.RegolithTime, time) }

// IsCanyon reports whether Canyon is active at the given timestamp.
func (c *ChainConfig) IsCanyon(time uint64) bool { return isTimeActive(c.CanyonTime, time) }

// IsCancun reports whether Cancun is active at the given timestamp.
func (c *ChainConfig) IsCancun(time uint64) bool { return isTimeActive(c.CancunTime, time) }

// IsPrague reports whether Prague is active at the given timestamp.
func (c *ChainConfig) IsPrague(time uint64) bool { return isTimeActive(c.PragueTime, time) }

// IsIsthmus reports whether Isthmus is active at the given timestamp.
func (c *ChainConfig) IsIsthmus(time uint64) bool { return isTimeActive(c.IsthmusTime, time) }

// IsMiniRex reports whether the MiniRex profile is active at the given
// timestamp.
func (c *ChainConfig) IsMiniRex(time uint64) bool { return isTimeActive(c.MiniRexTime, time) }

// SpecID returns the spec expected to be active at the given timestamp.
func (c *ChainConfig) SpecID(time uint64) SpecID {
	if c.IsMiniRex(time) {
		return MiniRex
	}
	return Equivalence
}

// Rules is a one-block snapshot of the fork predicates, taken once per block
// so the hot path never re-evaluates timestamps.
type Rules struct {
	ChainID    uint64
	IsRegolith bool
	IsCanyon   bool
	IsCancun   bool
	IsPrague   bool
	IsIsthmus  bool
	IsMiniRex  bool
	Spec       SpecID
}

// Rules returns the rule snapshot for the given block timestamp.
func (c *ChainConfig) Rules(time uint64) Rules {
	return Rules{
		ChainID:    c.ChainID,
		IsRegolith: c.IsRegolith(time),
		IsCanyon:   c.IsCanyon(time),
		IsCancun:   c.IsCancun(time),
		IsPrague:   c.IsPrague(time),
		IsIsthmus:  c.IsIsthmus(time),
		IsMiniRex:  c.IsMiniRex(time),
		Spec:       c.SpecID(time),
	}
}
