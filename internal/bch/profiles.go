package bch

// BCH127120_1 returns the BCH(127,120,1) code named in the frame
// configuration table: GF(2^7) with primitive polynomial x^7+x^3+1.
func BCH127120_1() *Params {
	p, err := New("BCH_127_120_1", 7, 0x09)
	if err != nil {
		// A hard-coded, known-primitive polynomial must always succeed;
		// a failure here means the table construction itself is broken.
		panic(err)
	}
	return p
}
