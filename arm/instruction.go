package arm

// Kind identifies which Thumb form an Instruction record represents.
type Kind int

const (
	NotImplemented Kind = iota

	LslImm
	LslReg
	LsrImm
	LsrReg
	AsrImm
	AsrReg

	AddReg
	AddImm
	AddSp
	AddPc
	Adc

	SubReg
	SubImm
	Sbc
	Neg
	Mul

	MovImm
	MovReg
	Mvn

	CmpImm
	CmpReg
	Cmn
	Tst

	And
	Bic
	Eor
	Orr

	Bx
	Blx

	LdrPc
	LdrReg
	LdrbReg
	LdrImm
	LdrbImm
	Ldsb
	LdrhReg
	LdrhImm
	Ldsh
	Ldmia

	StrReg
	StrbReg
	StrImm
	StrbImm
	StrhReg
	StrhImm
	Stmia

	Sxth
	Sxtb
	Uxth
	Uxtb
	Rev
	Rev16

	Push
	Pop

	Beq
	Bne
	Bcs
	Bcc
	Bmi
	Bpl
	Bvs
	Bvc
	Bhi
	Bls
	Bge
	Blt
	Bgt
	Ble
	B

	Bl
	Dmb
)

// Instruction is a tagged variant covering every supported Thumb form.
// Only the fields relevant to Kind are meaningful; the decoder
// populates register indices, pre-shifted/sign-extended offsets, and
// list/flag bits so that the interpreter never has to re-derive them.
type Instruction struct {
	Kind Kind

	Rd uint8
	Rs uint8
	Rn uint8
	Rb uint8
	Ro uint8
	Rm uint8

	// Offset carries the single immediate/offset operand used by the
	// majority of variants (already shifted and sign-extended as the
	// encoding requires).
	Offset uint32

	// Offset1/Offset2 are used only by the two-halfword Bl pair.
	Offset1 uint32
	Offset2 uint32
	First   bool

	// RList is the 8-bit register list used by Ldmia/Stmia/Push/Pop.
	RList uint8

	// WithLR/WithPC flag whether Push includes LR / Pop includes PC.
	WithLR bool
	WithPC bool
}
