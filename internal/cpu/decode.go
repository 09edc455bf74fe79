package cpu

// handler executes one decoded instruction against the live CPU state.
type handler func(c *CPU, instr uint32)

// Instruction field accessors (MIPS-I encoding).
func primaryOp(instr uint32) uint32 { return instr >> 26 & 0x3F }
func rs(instr uint32) uint32        { return instr >> 21 & 0x1F }
func rt(instr uint32) uint32        { return instr >> 16 & 0x1F }
func rd(instr uint32) uint32        { return instr >> 11 & 0x1F }
func shamt(instr uint32) uint32     { return instr >> 6 & 0x1F }
func funct(instr uint32) uint32     { return instr & 0x3F }
func imm16(instr uint32) uint32     { return instr & 0xFFFF }
func simm16(instr uint32) uint32    { return uint32(int32(int16(instr & 0xFFFF))) }
func target26(instr uint32) uint32  { return instr & 0x03FFFFFF }

// decodeKey computes the 4096-entry table index: (primary<<6)|secondary.
// Secondary is the field that actually varies meaning within that
// primary opcode: funct for SPECIAL, rt for REGIMM, rs for the four
// coprocessor opcodes, and zero (a single catch-all slot) everywhere
// else, matching §4.3 "Decoding".
func decodeKey(instr uint32) uint32 {
	op := primaryOp(instr)
	var secondary uint32
	switch op {
	case opSPECIAL:
		secondary = funct(instr)
	case opREGIMM:
		secondary = rt(instr)
	case opCOP0, opCOP1, opCOP2, opCOP3:
		secondary = rs(instr)
	default:
		secondary = 0
	}
	return op<<6 | secondary
}

// Primary opcode values used as decode-table discriminants.
const (
	opSPECIAL = 0x00
	opREGIMM  = 0x01
	opJ       = 0x02
	opJAL     = 0x03
	opBEQ     = 0x04
	opBNE     = 0x05
	opBLEZ    = 0x06
	opBGTZ    = 0x07
	opADDI    = 0x08
	opADDIU   = 0x09
	opSLTI    = 0x0A
	opSLTIU   = 0x0B
	opANDI    = 0x0C
	opORI     = 0x0D
	opXORI    = 0x0E
	opLUI     = 0x0F
	opCOP0    = 0x10
	opCOP1    = 0x11
	opCOP2    = 0x12
	opCOP3    = 0x13
	opLB      = 0x20
	opLH      = 0x21
	opLWL     = 0x22
	opLW      = 0x23
	opLBU     = 0x24
	opLHU     = 0x25
	opLWR     = 0x26
	opSB      = 0x28
	opSH      = 0x29
	opSWL     = 0x2A
	opSW      = 0x2B
	opSWR     = 0x2E
	opLWC2    = 0x32
	opSWC2    = 0x3A
)

// SPECIAL funct codes.
const (
	fnSLL     = 0x00
	fnSRL     = 0x02
	fnSRA     = 0x03
	fnSLLV    = 0x04
	fnSRLV    = 0x06
	fnSRAV    = 0x07
	fnJR      = 0x08
	fnJALR    = 0x09
	fnSYSCALL = 0x0C
	fnBREAK   = 0x0D
	fnMFHI    = 0x10
	fnMTHI    = 0x11
	fnMFLO    = 0x12
	fnMTLO    = 0x13
	fnMULT    = 0x18
	fnMULTU   = 0x19
	fnDIV     = 0x1A
	fnDIVU    = 0x1B
	fnADD     = 0x20
	fnADDU    = 0x21
	fnSUB     = 0x22
	fnSUBU    = 0x23
	fnAND     = 0x24
	fnOR      = 0x25
	fnXOR     = 0x26
	fnNOR     = 0x27
	fnSLT     = 0x2A
	fnSLTU    = 0x2B
)

// REGIMM rt codes.
const (
	riBLTZ   = 0x00
	riBGEZ   = 0x01
	riBLTZAL = 0x10
	riBGEZAL = 0x11
)

// COPz rs codes.
const (
	copMF = 0x00
	copCF = 0x02
	copMT = 0x04
	copCT = 0x06
	copCO = 0x10
)

func (c *CPU) buildDecodeTable() {
	set := func(op, sec uint32, h handler) { c.decodeTable[op<<6|sec] = h }

	set(opSPECIAL, fnSLL, opSll)
	set(opSPECIAL, fnSRL, opSrl)
	set(opSPECIAL, fnSRA, opSra)
	set(opSPECIAL, fnSLLV, opSllv)
	set(opSPECIAL, fnSRLV, opSrlv)
	set(opSPECIAL, fnSRAV, opSrav)
	set(opSPECIAL, fnJR, opJr)
	set(opSPECIAL, fnJALR, opJalr)
	set(opSPECIAL, fnSYSCALL, opSyscall)
	set(opSPECIAL, fnBREAK, opBreak)
	set(opSPECIAL, fnMFHI, opMfhi)
	set(opSPECIAL, fnMTHI, opMthi)
	set(opSPECIAL, fnMFLO, opMflo)
	set(opSPECIAL, fnMTLO, opMtlo)
	set(opSPECIAL, fnMULT, opMult)
	set(opSPECIAL, fnMULTU, opMultu)
	set(opSPECIAL, fnDIV, opDiv)
	set(opSPECIAL, fnDIVU, opDivu)
	set(opSPECIAL, fnADD, opAdd)
	set(opSPECIAL, fnADDU, opAddu)
	set(opSPECIAL, fnSUB, opSub)
	set(opSPECIAL, fnSUBU, opSubu)
	set(opSPECIAL, fnAND, opAnd)
	set(opSPECIAL, fnOR, opOr)
	set(opSPECIAL, fnXOR, opXor)
	set(opSPECIAL, fnNOR, opNor)
	set(opSPECIAL, fnSLT, opSlt)
	set(opSPECIAL, fnSLTU, opSltu)

	set(opREGIMM, riBLTZ, opBltz)
	set(opREGIMM, riBGEZ, opBgez)
	set(opREGIMM, riBLTZAL, opBltzal)
	set(opREGIMM, riBGEZAL, opBgezal)

	set(opJ, 0, opJ_)
	set(opJAL, 0, opJal)
	set(opBEQ, 0, opBeq)
	set(opBNE, 0, opBne)
	set(opBLEZ, 0, opBlez)
	set(opBGTZ, 0, opBgtz)
	set(opADDI, 0, opAddi)
	set(opADDIU, 0, opAddiu)
	set(opSLTI, 0, opSlti)
	set(opSLTIU, 0, opSltiu)
	set(opANDI, 0, opAndi)
	set(opORI, 0, opOri)
	set(opXORI, 0, opXori)
	set(opLUI, 0, opLui)

	set(opCOP0, copMF, opMfc0)
	set(opCOP0, copMT, opMtc0)
	set(opCOP0, copCO, opCop0Exec)

	set(opCOP2, copMF, opMfc2)
	set(opCOP2, copCF, opCfc2)
	set(opCOP2, copMT, opMtc2)
	set(opCOP2, copCT, opCtc2)
	for rsField := uint32(0x10); rsField <= 0x1F; rsField++ {
		set(opCOP2, rsField, opCop2Exec)
	}

	set(opCOP1, 0, opCopUnusable)
	set(opCOP3, 0, opCopUnusable)

	set(opLB, 0, opLb)
	set(opLH, 0, opLh)
	set(opLWL, 0, opLwl)
	set(opLW, 0, opLw)
	set(opLBU, 0, opLbu)
	set(opLHU, 0, opLhu)
	set(opLWR, 0, opLwr)
	set(opSB, 0, opSb)
	set(opSH, 0, opSh)
	set(opSWL, 0, opSwl)
	set(opSW, 0, opSw)
	set(opSWR, 0, opSwr)
	set(opLWC2, 0, opLwc2)
	set(opSWC2, 0, opSwc2)
}
