// Package basis implements the deterministic bijection between physical
// sites (1..L, user-facing) and RAM indices (the order sites appear along
// the MPS chain), for each supported boundary condition.
package basis

import "github.com/sarchlab/mpssim/simerr"

// BC names a boundary condition.
type BC int

const (
	Open BC = iota
	Periodic
	PeriodicNNN
)

func (b BC) String() string {
	switch b {
	case Open:
		return "open"
	case Periodic:
		return "periodic"
	case PeriodicNNN:
		return "periodic_nnn"
	default:
		return "unknown"
	}
}

// Mapping is the bidirectional basis mapping for one L and one boundary
// condition. Both slices are 1-indexed in meaning but 0-indexed slices:
// PhyToRAM[p-1] is the RAM index (1-based) of physical site p, and
// RAMToPhy[k-1] is the physical site (1-based) of RAM index k.
type Mapping struct {
	L        int
	BC       BC
	PhyToRAM []int
	RAMToPhy []int
}

// New builds the Mapping for L sites under bc.
//
//   - Open: identity both ways.
//   - Periodic: requires even L. RAM order interleaves from both ends:
//     [1, L, 2, L-1, 3, L-2, ...].
//   - PeriodicNNN: no parity restriction. RAM order is the
//     "outward-from-middle" permutation (see package doc on
//     outwardFromMiddle), which is well-defined for both even and odd L.
func New(L int, bc BC) (*Mapping, error) {
	if L < 2 {
		return nil, simerr.New(simerr.InvalidArgument, "L must be >= 2, got %d", L)
	}

	var ramToPhy []int
	switch bc {
	case Open:
		ramToPhy = identity(L)
	case Periodic:
		if L%2 != 0 {
			return nil, simerr.New(simerr.InvalidArgument, "periodic boundary condition requires even L, got %d", L)
		}
		ramToPhy = folded(L)
	case PeriodicNNN:
		ramToPhy = outwardFromMiddle(L)
	default:
		return nil, simerr.New(simerr.InvalidArgument, "unknown boundary condition %v", bc)
	}

	phyToRAM := invert(ramToPhy)

	return &Mapping{L: L, BC: bc, PhyToRAM: phyToRAM, RAMToPhy: ramToPhy}, nil
}

func identity(L int) []int {
	out := make([]int, L)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// folded produces the periodic-BC RAM order [1, L, 2, L-1, 3, L-2, ...].
func folded(L int) []int {
	out := make([]int, 0, L)
	left, right := 1, L
	for left <= right {
		out = append(out, left)
		left++
		if left <= right {
			out = append(out, right)
			right--
		}
	}
	return out
}

// outwardFromMiddle produces the NNN-friendly RAM order: start at
// mid = L/2, right = mid+1; repeatedly append left, left-1, then right,
// advancing left leftward by two steps and right rightward by one step,
// until both cursors leave [1, L].
func outwardFromMiddle(L int) []int {
	out := make([]int, 0, L)
	mid := L / 2
	left := mid
	right := mid + 1
	for left >= 1 || right <= L {
		if left >= 1 {
			out = append(out, left)
			left--
		}
		if left >= 1 {
			out = append(out, left)
			left--
		}
		if right <= L {
			out = append(out, right)
			right++
		}
	}
	return out
}

// invert returns the inverse permutation of perm, a 0-indexed slice whose
// values are 1-based site labels.
func invert(perm []int) []int {
	inv := make([]int, len(perm))
	for ramIdx, phy := range perm {
		inv[phy-1] = ramIdx + 1
	}
	return inv
}

// Phy2RAM translates a 1-based physical site to its 1-based RAM index.
func (m *Mapping) Phy2RAM(phy int) (int, error) {
	if phy < 1 || phy > m.L {
		return 0, simerr.New(simerr.InvalidArgument, "physical site %d out of range [1,%d]", phy, m.L)
	}
	return m.PhyToRAM[phy-1], nil
}

// RAM2Phy translates a 1-based RAM index to its 1-based physical site.
func (m *Mapping) RAM2Phy(ram int) (int, error) {
	if ram < 1 || ram > m.L {
		return 0, simerr.New(simerr.InvalidArgument, "ram index %d out of range [1,%d]", ram, m.L)
	}
	return m.RAMToPhy[ram-1], nil
}
