package interpreter

import (
	"github.com/pgavlin/warptab/exec"
	"github.com/pgavlin/warptab/wasm"
	"github.com/pgavlin/warptab/wasm/code"
)

type scope struct {
	module *module
	locals []wasm.ValueType
}

func (s *scope) GetLocalType(localidx uint32) (wasm.ValueType, bool) {
	if localidx >= uint32(len(s.locals)) {
		return 0, false
	}
	return s.locals[int(localidx)], true
}

func (s *scope) GetFunctionSignature(funcidx uint32) (wasm.FunctionSig, bool) {
	func_, ok := s.module.getFunction(funcidx)
	if !ok {
		return wasm.FunctionSig{}, false
	}
	return func_.GetSignature(), true
}

func (s *scope) GetType(typeidx uint32) (wasm.FunctionSig, bool) {
	if typeidx >= uint32(len(s.module.types)) {
		return wasm.FunctionSig{}, false
	}
	return s.module.types[int(typeidx)], true
}

func (s *scope) GetTableIndexType(tableidx uint32) (wasm.IndexType, bool) {
	t, ok := s.module.getTable(tableidx)
	if !ok {
		return 0, false
	}
	return t.IndexType(), true
}

func (s *scope) HasElement(elemidx uint32) bool {
	_, ok := s.module.getElement(elemidx)
	return ok
}

// A frame holds the locals and operand stack of a single function activation. Values are stored as raw bits;
// i32 values are zero-extended.
type frame struct {
	thread *exec.Thread
	module *module
	locals []uint64
	stack  []uint64
}

func newFrame(thread *exec.Thread, f *function, args []uint64) *frame {
	locals := make([]uint64, len(f.locals))
	copy(locals, args)
	return &frame{
		thread: thread,
		module: f.module,
		locals: locals,
		stack:  make([]uint64, 0, f.metrics.MaxStackDepth),
	}
}

func (f *frame) push(v uint64) {
	f.stack = append(f.stack, v)
}

func (f *frame) pop() uint64 {
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v
}

func (f *frame) pushn(values []uint64) {
	f.stack = append(f.stack, values...)
}

func (f *frame) popn(values []uint64) {
	copy(values, f.stack[len(f.stack)-len(values):])
	f.stack = f.stack[:len(f.stack)-len(values)]
}

// popIndex pops an operand of the given index type. i32 operands are zero-extended.
func (f *frame) popIndex(t wasm.IndexType) uint64 {
	v := f.pop()
	if t == wasm.IndexTypeI32 {
		return uint64(uint32(v))
	}
	return v
}

func (f *frame) table(tableidx uint32) *exec.Table {
	t, ok := f.module.getTable(tableidx)
	if !ok {
		panic(exec.InvalidTableIndexError(tableidx))
	}
	return t
}

func (f *frame) element(elemidx uint32) *exec.ElementSegment {
	seg, ok := f.module.getElement(elemidx)
	if !ok {
		panic(wasm.ValidationError("unknown elem segment"))
	}
	return seg
}

func (f *frame) trap(err error) {
	if err != nil {
		panic(err)
	}
}

func (f *frame) call(callee exec.Function) {
	sig := callee.GetSignature()

	args, returns := make([]uint64, len(sig.ParamTypes)), make([]uint64, len(sig.ReturnTypes))
	f.popn(args)
	callee.UncheckedCall(f.thread, args, returns)
	f.pushn(returns)
}

// run executes the given instructions. Execution stops at the first return or at the final end.
func (f *frame) run(body []code.Instruction) {
	for i := range body {
		instr := &body[i]

		switch instr.Opcode {
		case code.OpUnreachable:
			panic(exec.TrapUnreachable)

		case code.OpNop:
			// OK

		case code.OpReturn, code.OpEnd:
			return

		case code.OpDrop:
			f.pop()

		case code.OpLocalGet:
			f.push(f.locals[int(instr.Localidx())])

		case code.OpI32Const, code.OpI64Const, code.OpF32Const, code.OpF64Const:
			f.push(instr.Immediate)

		case code.OpCall:
			callee, _ := f.module.getFunction(instr.Funcidx())
			f.call(callee)

		case code.OpCallIndirect:
			table := f.table(instr.Tableidx())
			callee, err := table.Resolve(f.popIndex(table.IndexType()))
			f.trap(err)
			if !callee.GetSignature().Equals(f.module.types[int(instr.Typeidx())]) {
				panic(exec.TrapIndirectCallTypeMismatch)
			}
			f.call(callee)

		case code.OpTableInit:
			table, seg := f.table(instr.Tableidx()), f.element(instr.Elemidx())
			n := f.popIndex(wasm.IndexTypeI32)
			s := f.popIndex(wasm.IndexTypeI32)
			d := f.popIndex(table.IndexType())
			f.trap(exec.TableInit(table, seg, d, s, n))

		case code.OpElemDrop:
			exec.ElemDrop(f.element(instr.Elemidx()))

		case code.OpTableCopy:
			dstidx, srcidx := instr.Tables()
			dst, src := f.table(dstidx), f.table(srcidx)
			n := f.popIndex(wasm.MinIndexType(dst.IndexType(), src.IndexType()))
			s := f.popIndex(src.IndexType())
			d := f.popIndex(dst.IndexType())
			f.trap(exec.TableCopy(dst, src, d, s, n))

		case code.OpTableSize:
			f.push(f.table(instr.Tableidx()).Size())

		default:
			panic(code.ErrInvalidInstruction)
		}
	}
}
