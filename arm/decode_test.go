package arm

import "testing"

func TestDecodeShiftImmediate(t *testing.T) {
	// LSLS R0, R1, #4
	ins, pair := Decode(0b0000000100001000, 0)
	if pair {
		t.Fatalf("unexpected pair flag")
	}
	if ins.Kind != LslImm || ins.Rs != 1 || ins.Rd != 0 || ins.Offset != 4 {
		t.Errorf("got %+v", ins)
	}
}

func TestDecodeMovImm(t *testing.T) {
	// MOVS R0, #1
	ins, _ := Decode(0b0010000000000001, 0)
	if ins.Kind != MovImm || ins.Rd != 0 || ins.Offset != 1 {
		t.Errorf("got %+v", ins)
	}
}

func TestDecodeConditionalBranch(t *testing.T) {
	// BEQ with offset -2 (encoded as 0xFE)
	ins, _ := Decode(0b1101000011111110, 0)
	if ins.Kind != Beq {
		t.Fatalf("expected Beq, got %v", ins.Kind)
	}
	if int32(ins.Offset) != -4 {
		t.Errorf("expected sign-extended offset -4, got %d", int32(ins.Offset))
	}
}

func TestDecodeUnconditionalBranch(t *testing.T) {
	ins, _ := Decode(0b1110000000000000, 0)
	if ins.Kind != B || ins.Offset != 0 {
		t.Errorf("got %+v", ins)
	}
}

func TestDecodeBlPair(t *testing.T) {
	first := uint16(0b1111000000000001)
	second := uint16(0b1111100000000010)

	ins, pair := Decode(first, second)
	if !pair {
		t.Fatalf("expected pair flag for BL first halfword")
	}
	if ins.Kind != Bl || !ins.First {
		t.Errorf("got %+v", ins)
	}

	next := decodeBlSecond(second)
	if next.Kind != Bl || next.First {
		t.Errorf("expected second Bl record with First=false, got %+v", next)
	}
	if next.Offset2 != uint32(second&0x7ff)<<1 {
		t.Errorf("offset2 mismatch: got %d", next.Offset2)
	}
}

func TestDecodeUndefinedConditionIsNotImplemented(t *testing.T) {
	ins, _ := Decode(0b1101111000000000, 0)
	if ins.Kind != NotImplemented {
		t.Errorf("expected NotImplemented for condition 0b1110, got %v", ins.Kind)
	}
}

func TestDecodeDmb(t *testing.T) {
	ins, _ := Decode(0xF3BF, 0)
	if ins.Kind != Dmb {
		t.Errorf("expected Dmb, got %v", ins.Kind)
	}
}

func TestDecodePushPop(t *testing.T) {
	// PUSH {R0-R2, LR}
	ins, _ := Decode(0b1011010100000111, 0)
	if ins.Kind != Push || !ins.WithLR || ins.RList != 0b111 {
		t.Errorf("got %+v", ins)
	}

	// POP {R0-R2, PC}
	ins, _ = Decode(0b1011110100000111, 0)
	if ins.Kind != Pop || !ins.WithPC || ins.RList != 0b111 {
		t.Errorf("got %+v", ins)
	}
}

func TestDecodeHighRegisterBx(t *testing.T) {
	// BX R1
	ins, _ := Decode(0b0100011100001000, 0)
	if ins.Kind != Bx || ins.Rs != 1 {
		t.Errorf("got %+v", ins)
	}
}
