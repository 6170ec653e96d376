package pipeline

// Outcome is the result of one step execution.
//
//   - Success: Value holds what the function returned.
//   - Degraded: the function failed under Continue or SilentlyContinue; Value holds the diagnostic text.
//   - Fatal: the function failed under Stop; Value is nil.
//
// Fault is set for Degraded and Fatal outcomes.
type Outcome struct {
	Kind  OutcomeKind
	Value any
	Fault *StepFault
}

func succeeded(value any) Outcome {
	return Outcome{Kind: Success, Value: value}
}

func degraded(fault *StepFault) Outcome {
	return Outcome{Kind: Degraded, Value: fault.Diagnostic(), Fault: fault}
}

func failed(fault *StepFault) Outcome {
	return Outcome{Kind: Fatal, Fault: fault}
}
