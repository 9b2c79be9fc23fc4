package arm

// Register indices with architectural names, per the Thumb register
// file: R0-R12 general purpose, R13 stack pointer, R14 link register,
// R15 program counter.
const (
	rSB  = 9
	rSL  = 10
	rFP  = 11
	rIP  = 12
	rSP  = 13
	rLR  = 14
	rPC  = 15
	rNum = 16
)
