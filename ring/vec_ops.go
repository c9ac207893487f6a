package ring

// Element-wise kernels over raw coefficient slices. All kernels assume
// len(p1) == len(p2) == len(p3) and inputs in the range [0, q-1].

func addvec(p1, p2, p3 []uint64, q uint64) {
	for i := range p3 {
		p3[i] = CRed(p1[i]+p2[i], q)
	}
}

func addscalarvec(p1 []uint64, scalar uint64, p3 []uint64, q uint64) {
	for i := range p3 {
		p3[i] = CRed(p1[i]+scalar, q)
	}
}

func subvec(p1, p2, p3 []uint64, q uint64) {
	for i := range p3 {
		p3[i] = CRed(p1[i]+q-p2[i], q)
	}
}

func subscalarvec(p1 []uint64, scalar uint64, p3 []uint64, q uint64) {
	for i := range p3 {
		p3[i] = CRed(p1[i]+q-scalar, q)
	}
}

func negvec(p1, p3 []uint64, q uint64) {
	for i := range p3 {
		if p1[i] == 0 {
			p3[i] = 0
		} else {
			p3[i] = q - p1[i]
		}
	}
}

func mulvec(p1, p2, p3 []uint64, q uint64, brc [2]uint64) {
	for i := range p3 {
		p3[i] = BRed(p1[i], p2[i], q, brc)
	}
}

// mulscalarvec multiplies by a constant with the Shoup fast path: src is
// the constant derived with SRedConstant(scalar, q).
func mulscalarvec(p1 []uint64, scalar uint64, p3 []uint64, q, src uint64) {
	for i := range p3 {
		p3[i] = SRed(p1[i], scalar, q, src)
	}
}

func expscalarvec(p1 []uint64, exp uint64, p3 []uint64, q uint64, brc [2]uint64) {
	for i := range p3 {
		x := p1[i]
		r := uint64(1)
		for e := exp; e > 0; e >>= 1 {
			if e&1 == 1 {
				r = BRed(r, x, q, brc)
			}
			x = BRed(x, x, q, brc)
		}
		p3[i] = r
	}
}

func reducevec(p1, p3 []uint64, q uint64, brc [2]uint64) {
	for i := range p3 {
		p3[i] = BRedAdd(p1[i], q, brc)
	}
}
