package relay

// Write records a single output operation for test assertions.
type Write struct {
	Line Line
	On   bool
}

// FakeOutputs is a test double that tracks line states and the exact
// write sequence.
type FakeOutputs struct {
	States [3]bool
	Writes []Write

	// FailOn, if set for a line, makes SetLine fail for that line.
	FailOn map[Line]error
}

func NewFakeOutputs() *FakeOutputs {
	return &FakeOutputs{}
}

func (f *FakeOutputs) SetLine(line Line, on bool) error {
	if err, ok := f.FailOn[line]; ok {
		return err
	}
	f.States[line] = on
	f.Writes = append(f.Writes, Write{Line: line, On: on})
	return nil
}

// ActiveCount returns how many lines are currently asserted.
func (f *FakeOutputs) ActiveCount() int {
	n := 0
	for _, s := range f.States {
		if s {
			n++
		}
	}
	return n
}
