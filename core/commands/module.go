package commands

// KindModuleFinished identifies a module boundary.
const KindModuleFinished Kind = "module_finished"

// ModuleFinished marks the end of a lesson module. It completes immediately:
// the continue affordance it surfaces stays visible, but commands that
// logically belong to the same module-close batch (games, score points) may
// still be queued behind it and must not be held back.
type ModuleFinished struct {
	Base
}

// NewModuleFinished creates a module-finished command.
func NewModuleFinished() ModuleFinished {
	return ModuleFinished{Base: NewBase(KindModuleFinished)}
}
