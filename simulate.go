package livetable

import (
	"math/rand"
	"time"
)

// Simulator produces plausible snapshot batches for a testbed, for demos
// and replay files when no sidecar is reachable.
type Simulator struct {
	rng   *rand.Rand
	nodes int
}

// NewSimulator creates a simulator for nodes ids; seed 0 picks a time-based seed.
func NewSimulator(nodes int, seed int64) *Simulator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Simulator{rng: rand.New(rand.NewSource(seed)), nodes: nodes}
}

var (
	simReleases = []string{"fedora-39", "ubuntu-22.04", "centos-8", "other"}
	simImages   = []string{"ubuntu", "fedora", "gnuradio", "oai-enb", "oai-ue"}
	simUSRPs    = []string{"b210", "n210", "usrp1", "e3372"}
)

func (s *Simulator) onOff(pOn float64) string {
	if s.rng.Float64() < pOn {
		return "on"
	}
	return "off"
}

func (s *Simulator) pick(values []string) string {
	return values[s.rng.Intn(len(values))]
}

// Full returns one complete snapshot per node.
func (s *Simulator) Full() Batch {
	batch := make(Batch, 0, s.nodes)
	for id := 1; id <= s.nodes; id++ {
		batch = append(batch, s.snapshot(id))
	}
	return batch
}

// Next returns partial snapshots for a few random nodes.
func (s *Simulator) Next() Batch {
	count := 1 + s.rng.Intn(3)
	batch := make(Batch, 0, count)
	for i := 0; i < count; i++ {
		id := 1 + s.rng.Intn(s.nodes)
		snapshot := Snapshot{"id": id}
		switch s.rng.Intn(3) {
		case 0:
			power := s.onOff(0.5)
			snapshot["cmc_on_off"] = power
			snapshot["control_ping"] = power
			snapshot["control_ssh"] = power
		case 1:
			snapshot["usrp_on_off"] = s.onOff(0.4)
		default:
			snapshot["os_release"] = s.pick(simReleases)
			snapshot["image_radical"] = s.pick(simImages)
		}
		batch = append(batch, snapshot)
	}
	return batch
}

func (s *Simulator) snapshot(id int) Snapshot {
	power := s.onOff(0.3)
	available := "ok"
	if s.rng.Float64() < 0.1 {
		available = "ko"
	}
	snapshot := Snapshot{
		"id":           id,
		"available":    available,
		"cmc_on_off":   power,
		"control_ping": power,
		"control_ssh":  power,
		"usrp_on_off":  s.onOff(0.2),
		"usrp_type":    s.pick(simUSRPs),
	}
	if power == "on" {
		snapshot["os_release"] = s.pick(simReleases)
		snapshot["image_radical"] = s.pick(simImages)
		snapshot["uname"] = "6.5.0"
	}
	return snapshot
}
