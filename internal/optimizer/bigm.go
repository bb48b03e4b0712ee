package optimizer

// BigM holds the per-retailer constants that linearize the shipping rule.
//
// M bounds how far below the threshold a subtotal can be while the
// pay-shipping constraint is still satisfiable with the indicator set.
// N bounds the total quantity that can be ordered from the retailer.
type BigM struct {
	M float64
	N float64
}

// ComputeBigM derives the constants from the problem data:
// M[r] = thresholds[r] + margin and N[r] = M[r] + Σ_i inventory[i][r].
func ComputeBigM(thresholds []float64, inventory [][]int, margin float64) []BigM {
	out := make([]BigM, len(thresholds))
	for r, t := range thresholds {
		m := t + margin
		n := m
		for i := range inventory {
			n += float64(inventory[i][r])
		}
		out[r] = BigM{M: m, N: n}
	}
	return out
}
