package graph

// HasParam reports whether the spec defines a node with the named
// parameter. Used for synchronous validation before a graph instance is
// reachable.
func (s Spec) HasParam(node, name string) bool {
	for _, ns := range s.Nodes {
		if ns.ID == node {
			return validParam(ns.Type, name)
		}
	}
	return false
}

// Tone returns a spec of a single oscillator routed to the output.
func Tone(sampleRate int, shape NodeType, freq, amp float64) Spec {
	return Spec{
		SampleRate: sampleRate,
		Nodes: []NodeSpec{
			{
				ID:     "osc",
				Type:   shape,
				Params: map[string]float64{"freq": freq, "amp": amp},
			},
		},
		Out: "osc",
	}
}

// Voice returns a spec of an oscillator with a gain stage shaped by an
// attack-release envelope. This is the template used for pattern notes:
// the graph reports Done once released and decayed.
func Voice(sampleRate int, shape NodeType, freq, amp, attack, release float64) Spec {
	return Spec{
		SampleRate: sampleRate,
		Nodes: []NodeSpec{
			{
				ID:     "osc",
				Type:   shape,
				Params: map[string]float64{"freq": freq, "amp": amp},
			},
			{
				ID:     "env",
				Type:   Env,
				Params: map[string]float64{"attack": attack, "release": release},
			},
			{
				ID:   "out",
				Type: Gain,
				In:   []string{"osc"},
				Mods: map[string]string{"gain": "env"},
			},
		},
		Out: "out",
	}
}
