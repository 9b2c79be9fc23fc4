package arm

// Decode translates one 16-bit Thumb halfword into an Instruction
// record. next is the halfword immediately following instr in program
// order, consulted only to recognise the two-halfword BL encoding. The
// returned pair flag reports whether next was consumed as the second
// half of a BL pair; the caller is then responsible for advancing past
// it without decoding it a second time.
//
// Decoding is a bit-pattern match on the top bits of instr, tried in
// the order documented for the Thumb encoding space. The first match
// wins, and some cases depend on that order: the add/subtract case
// also matches the shift-by-immediate encodings handled before it.
func Decode(instr, next uint16) (ins Instruction, pair bool) {
	switch {
	case instr&0b1110000000000000 == 0b0000000000000000 && instr&0b0001100000000000 != 0b0001100000000000:
		// shift-by-immediate
		rs := uint8((instr & 0b0000000000111000) >> 3)
		rd := uint8(instr & 0b0000000000000111)
		offset := uint8((instr & 0b0000011111000000) >> 6)
		switch (instr & 0b0001100000000000) >> 11 {
		case 0:
			return Instruction{Kind: LslImm, Rs: rs, Rd: rd, Offset: uint32(offset)}, false
		case 1:
			return Instruction{Kind: LsrImm, Rs: rs, Rd: rd, Offset: uint32(offset)}, false
		case 2:
			return Instruction{Kind: AsrImm, Rs: rs, Rd: rd, Offset: uint32(offset)}, false
		default:
			return Instruction{Kind: NotImplemented}, false
		}

	case instr&0b1110000000000000 == 0b0000000000000000:
		// add/subtract register or immediate (3-bit)
		rs := uint8((instr & 0b0000000000111000) >> 3)
		rd := uint8(instr & 0b0000000000000111)
		rnOffset := uint8((instr & 0b0000000111000000) >> 6)
		switch (instr & 0b0000011000000000) >> 9 {
		case 0b00:
			return Instruction{Kind: AddReg, Rs: rs, Rd: rd, Rn: rnOffset}, false
		case 0b10:
			return Instruction{Kind: AddImm, Rs: rs, Rd: rd, Offset: uint32(rnOffset)}, false
		case 0b01:
			return Instruction{Kind: SubReg, Rs: rs, Rd: rd, Rn: rnOffset}, false
		case 0b11:
			return Instruction{Kind: SubImm, Rs: rs, Rd: rd, Offset: uint32(rnOffset)}, false
		default:
			return Instruction{Kind: NotImplemented}, false
		}

	case instr&0b1110000000000000 == 0b0010000000000000:
		// mov/cmp/add/sub immediate-8
		rd := uint8((instr & 0b0000011100000000) >> 8)
		offset := uint32(instr & 0xff)
		switch (instr & 0b0001100000000000) >> 11 {
		case 0b00:
			return Instruction{Kind: MovImm, Rd: rd, Offset: offset}, false
		case 0b01:
			return Instruction{Kind: CmpImm, Rd: rd, Offset: offset}, false
		case 0b10:
			return Instruction{Kind: AddImm, Rs: rd, Rd: rd, Offset: offset}, false
		case 0b11:
			return Instruction{Kind: SubImm, Rs: rd, Rd: rd, Offset: offset}, false
		default:
			return Instruction{Kind: NotImplemented}, false
		}

	case instr&0b1111110000000000 == 0b0100000000000000:
		// ALU operations, 3-bit register form
		rs := uint8((instr & 0b0000000000111000) >> 3)
		rd := uint8(instr & 0b0000000000000111)
		switch (instr & 0b0000001111000000) >> 6 {
		case 0b0000:
			return Instruction{Kind: And, Rd: rd, Rs: rs}, false
		case 0b0001:
			return Instruction{Kind: Eor, Rd: rd, Rs: rs}, false
		case 0b0010:
			return Instruction{Kind: LslReg, Rd: rd, Rs: rs}, false
		case 0b0011:
			return Instruction{Kind: LsrReg, Rd: rd, Rs: rs}, false
		case 0b0100:
			return Instruction{Kind: AsrReg, Rd: rd, Rs: rs}, false
		case 0b0101:
			return Instruction{Kind: Adc, Rd: rd, Rs: rs}, false
		case 0b0110:
			return Instruction{Kind: Sbc, Rd: rd, Rs: rs}, false
		case 0b1000:
			return Instruction{Kind: Tst, Rd: rd, Rs: rs}, false
		case 0b1001:
			return Instruction{Kind: Neg, Rd: rd, Rs: rs}, false
		case 0b1010:
			return Instruction{Kind: CmpReg, Rd: rd, Rs: rs}, false
		case 0b1011:
			return Instruction{Kind: Cmn, Rd: rd, Rs: rs}, false
		case 0b1100:
			return Instruction{Kind: Orr, Rd: rd, Rs: rs}, false
		case 0b1101:
			return Instruction{Kind: Mul, Rd: rd, Rs: rs}, false
		case 0b1110:
			return Instruction{Kind: Bic, Rd: rd, Rs: rs}, false
		case 0b1111:
			return Instruction{Kind: Mvn, Rd: rd, Rs: rs}, false
		default:
			return Instruction{Kind: NotImplemented}, false
		}

	case instr&0b1111110000000000 == 0b0100010000000000:
		// high-register operations and BX/BLX
		opH1H2 := (instr & 0b0000001111000000) >> 6
		rsHs := uint8((instr & 0b0000000000111000) >> 3)
		rdHd := uint8(instr & 0b0000000000000111)
		rm := uint8((instr & 0b0000000001111000) >> 3)
		switch opH1H2 {
		case 0b0001:
			return Instruction{Kind: AddReg, Rd: rdHd, Rs: rsHs + 8, Rn: rdHd}, false
		case 0b0010:
			return Instruction{Kind: AddReg, Rd: rdHd + 8, Rs: rsHs, Rn: rdHd + 8}, false
		case 0b0011:
			return Instruction{Kind: AddReg, Rd: rdHd + 8, Rs: rsHs + 8, Rn: rdHd + 8}, false
		case 0b0101:
			return Instruction{Kind: CmpReg, Rs: rsHs + 8, Rd: rdHd}, false
		case 0b0110:
			return Instruction{Kind: CmpReg, Rs: rsHs, Rd: rdHd + 8}, false
		case 0b0111:
			return Instruction{Kind: CmpReg, Rs: rsHs + 8, Rd: rdHd + 8}, false
		case 0b1000:
			return Instruction{Kind: MovReg, Rs: rsHs, Rd: rdHd}, false
		case 0b1001:
			return Instruction{Kind: MovReg, Rs: rsHs + 8, Rd: rdHd}, false
		case 0b1010:
			return Instruction{Kind: MovReg, Rs: rsHs, Rd: rdHd + 8}, false
		case 0b1011:
			return Instruction{Kind: MovReg, Rs: rsHs + 8, Rd: rdHd + 8}, false
		case 0b1100:
			return Instruction{Kind: Bx, Rs: rsHs}, false
		case 0b1101:
			return Instruction{Kind: Bx, Rs: rsHs + 8}, false
		case 0b1110, 0b1111:
			return Instruction{Kind: Blx, Rm: rm}, false
		default:
			return Instruction{Kind: NotImplemented}, false
		}

	case instr&0b1111100000000000 == 0b0100100000000000:
		// LDR (PC-relative)
		rd := uint8((instr & 0b0000011100000000) >> 8)
		return Instruction{Kind: LdrPc, Rd: rd, Offset: uint32(instr&0xff) << 2}, false

	case instr&0b1111001000000000 == 0b0101000000000000:
		// load/store with register offset
		lb := (instr & 0b0000110000000000) >> 10
		ro := uint8((instr & 0b0000000111000000) >> 6)
		rb := uint8((instr & 0b0000000000111000) >> 3)
		rd := uint8(instr & 0b0000000000000111)
		switch lb {
		case 0b00:
			return Instruction{Kind: StrReg, Rb: rb, Ro: ro, Rd: rd}, false
		case 0b01:
			return Instruction{Kind: StrbReg, Rb: rb, Ro: ro, Rd: rd}, false
		case 0b10:
			return Instruction{Kind: LdrReg, Rb: rb, Ro: ro, Rd: rd}, false
		case 0b11:
			return Instruction{Kind: LdrbReg, Rb: rb, Ro: ro, Rd: rd}, false
		default:
			return Instruction{Kind: NotImplemented}, false
		}

	case instr&0b1111001000000000 == 0b0101001000000000:
		// load/store halfword, signed register form
		hs := (instr & 0b0000110000000000) >> 10
		ro := uint8((instr & 0b0000000111000000) >> 6)
		rb := uint8((instr & 0b0000000000111000) >> 3)
		rd := uint8(instr & 0b0000000000000111)
		switch hs {
		case 0b00:
			return Instruction{Kind: StrhReg, Rb: rb, Ro: ro, Rd: rd}, false
		case 0b01:
			return Instruction{Kind: Ldsb, Rb: rb, Ro: ro, Rd: rd}, false
		case 0b10:
			return Instruction{Kind: LdrhReg, Rb: rb, Ro: ro, Rd: rd}, false
		case 0b11:
			return Instruction{Kind: Ldsh, Rb: rb, Ro: ro, Rd: rd}, false
		default:
			return Instruction{Kind: NotImplemented}, false
		}

	case instr&0b1110000000000000 == 0b0110000000000000:
		// load/store with immediate offset
		bl := (instr & 0b0001100000000000) >> 11
		offset := uint32((instr & 0b0000011111000000) >> 6)
		rb := uint8((instr & 0b0000000000111000) >> 3)
		rd := uint8(instr & 0b0000000000000111)
		switch bl {
		case 0b00:
			return Instruction{Kind: StrImm, Rb: rb, Offset: offset << 2, Rd: rd}, false
		case 0b01:
			return Instruction{Kind: LdrImm, Rb: rb, Offset: offset << 2, Rd: rd}, false
		case 0b10:
			return Instruction{Kind: StrbImm, Rb: rb, Offset: offset, Rd: rd}, false
		case 0b11:
			return Instruction{Kind: LdrbImm, Rb: rb, Offset: offset, Rd: rd}, false
		default:
			return Instruction{Kind: NotImplemented}, false
		}

	case instr&0b1111000000000000 == 0b1000000000000000:
		// load/store halfword, immediate offset
		load := instr&0b0000100000000000 != 0
		offset := uint32((instr&0b0000011111000000)>>6) << 1
		rb := uint8((instr & 0b0000000000111000) >> 3)
		rd := uint8(instr & 0b0000000000000111)
		if load {
			return Instruction{Kind: LdrhImm, Rb: rb, Offset: offset, Rd: rd}, false
		}
		return Instruction{Kind: StrhImm, Rb: rb, Offset: offset, Rd: rd}, false

	case instr&0b1111000000000000 == 0b1001000000000000:
		// SP-relative load/store
		load := instr&0b0000100000000000 != 0
		rd := uint8((instr & 0b0000011100000000) >> 8)
		offset := uint32(instr&0xff) << 2
		if load {
			return Instruction{Kind: LdrImm, Rb: rSP, Offset: offset, Rd: rd}, false
		}
		return Instruction{Kind: StrImm, Rb: rSP, Offset: offset, Rd: rd}, false

	case instr&0b1111000000000000 == 0b1010000000000000:
		// ADD to SP or PC, unsigned immediate
		sp := instr&0b0000100000000000 != 0
		rd := uint8((instr & 0b0000011100000000) >> 8)
		offset := uint32(instr&0xff) << 2
		if sp {
			return Instruction{Kind: AddSp, Rd: rd, Offset: offset}, false
		}
		return Instruction{Kind: AddPc, Rd: rd, Offset: offset}, false

	case instr&0b1111111100000000 == 0b1011000000000000:
		// ADD SP, #signed-immediate
		negative := instr&0b0000000010000000 != 0
		offset := uint32(instr&0b0000000001111111) << 2
		if negative {
			offset = uint32(-int32(offset))
		}
		return Instruction{Kind: AddSp, Rd: rSP, Offset: offset}, false

	case instr&0b1111111100000000 == 0b1011001000000000:
		// sign/zero extend
		opcode := (instr & 0b0000000011000000) >> 6
		rm := uint8((instr & 0b0000000000111000) >> 3)
		rd := uint8(instr & 0b0000000000000111)
		switch opcode {
		case 0b00:
			return Instruction{Kind: Sxth, Rd: rd, Rm: rm}, false
		case 0b01:
			return Instruction{Kind: Sxtb, Rd: rd, Rm: rm}, false
		case 0b10:
			return Instruction{Kind: Uxth, Rd: rd, Rm: rm}, false
		case 0b11:
			return Instruction{Kind: Uxtb, Rd: rd, Rm: rm}, false
		default:
			return Instruction{Kind: NotImplemented}, false
		}

	case instr&0b1111111100000000 == 0b1011101000000000:
		// byte-reverse
		opcode := (instr & 0b0000000011000000) >> 6
		rm := uint8((instr & 0b0000000000111000) >> 3)
		rd := uint8(instr & 0b0000000000000111)
		switch opcode {
		case 0b00:
			return Instruction{Kind: Rev, Rd: rd, Rm: rm}, false
		case 0b01:
			return Instruction{Kind: Rev16, Rd: rd, Rm: rm}, false
		default:
			return Instruction{Kind: NotImplemented}, false
		}

	case instr&0b1111111111101000 == 0b1011011001100000:
		// CPS — not supported
		return Instruction{Kind: NotImplemented}, false

	case instr&0b1111011000000000 == 0b1011010000000000:
		// PUSH / POP
		load := instr&0b0000100000000000 != 0
		r := instr&0b0000000100000000 != 0
		rlist := uint8(instr & 0xff)
		if !load {
			return Instruction{Kind: Push, RList: rlist, WithLR: r}, false
		}
		return Instruction{Kind: Pop, RList: rlist, WithPC: r}, false

	case instr&0b1111000000000000 == 0b1100000000000000:
		// LDMIA / STMIA
		load := instr&0b0000100000000000 != 0
		rb := uint8((instr & 0b0000011100000000) >> 8)
		rlist := uint8(instr & 0xff)
		if load {
			return Instruction{Kind: Ldmia, Rb: rb, RList: rlist}, false
		}
		return Instruction{Kind: Stmia, Rb: rb, RList: rlist}, false

	case instr&0b1111000000000000 == 0b1101000000000000:
		// conditional branch
		condition := (instr & 0b0000111100000000) >> 8
		offset := uint32(instr & 0xff)
		if offset&0b10000000 != 0 {
			offset |= ^uint32(0xff)
		}
		offset <<= 1
		switch condition {
		case 0b0000:
			return Instruction{Kind: Beq, Offset: offset}, false
		case 0b0001:
			return Instruction{Kind: Bne, Offset: offset}, false
		case 0b0010:
			return Instruction{Kind: Bcs, Offset: offset}, false
		case 0b0011:
			return Instruction{Kind: Bcc, Offset: offset}, false
		case 0b0100:
			return Instruction{Kind: Bmi, Offset: offset}, false
		case 0b0101:
			return Instruction{Kind: Bpl, Offset: offset}, false
		case 0b0110:
			return Instruction{Kind: Bvs, Offset: offset}, false
		case 0b0111:
			return Instruction{Kind: Bvc, Offset: offset}, false
		case 0b1000:
			return Instruction{Kind: Bhi, Offset: offset}, false
		case 0b1001:
			return Instruction{Kind: Bls, Offset: offset}, false
		case 0b1010:
			return Instruction{Kind: Bge, Offset: offset}, false
		case 0b1011:
			return Instruction{Kind: Blt, Offset: offset}, false
		case 0b1100:
			return Instruction{Kind: Bgt, Offset: offset}, false
		case 0b1101:
			return Instruction{Kind: Ble, Offset: offset}, false
		default:
			// 0b1110/0b1111 are undefined in the conditional-branch form
			return Instruction{Kind: NotImplemented}, false
		}

	case instr&0b1111100000000000 == 0b1110000000000000:
		// unconditional branch
		offset := uint32(instr & 0b0000011111111111)
		if offset&0b10000000000 != 0 {
			offset |= ^uint32(0b11111111111)
		}
		offset <<= 1
		return Instruction{Kind: B, Offset: offset}, false

	case instr&0b1111100000000000 == 0b1111000000000000 && next&0b1111100000000000 == 0b1111100000000000:
		// BL, first halfword — paired with the following halfword
		offset1 := uint32(instr & 0b0000011111111111)
		if offset1&0b0000010000000000 != 0 {
			offset1 |= ^uint32(0b0000011111111111)
		}
		offset1 <<= 12
		offset2 := uint32(next&0b0000011111111111) << 1
		return Instruction{Kind: Bl, First: true, Offset1: offset1, Offset2: offset2}, true

	case instr&0b1111111111100000 == 0b1111001111100000 && next&0b1101000000000000 == 0b1000000000000000:
		// MRS — not supported
		return Instruction{Kind: NotImplemented}, false

	case instr == 0xF3BF:
		return Instruction{Kind: Dmb}, false

	default:
		return Instruction{Kind: NotImplemented}, false
	}
}

// decodeBlSecond builds the paired second record of a BL sequence
// directly from the halfword already consumed as lookahead by Decode.
func decodeBlSecond(next uint16) Instruction {
	offset2 := uint32(next&0b0000011111111111) << 1
	return Instruction{Kind: Bl, First: false, Offset2: offset2}
}
