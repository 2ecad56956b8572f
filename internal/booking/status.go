package booking

// Actor identifies who requests a status transition. Location staff act with
// the location's authority, so they share ActorLocation.
type Actor string

const (
	ActorPerson   Actor = "person"
	ActorLocation Actor = "location"
	ActorCheckIn  Actor = "checkin"
)

// ValidateTransition decides whether actor may move an appointment from one
// status to another. Anything not covered by a rule is rejected with
// ErrTransitionNotAllowed; callers must leave state unchanged in that case.
//
// Rules:
//   - a person may cancel while the appointment is requested or scheduled
//   - the location may confirm (scheduled) or mark missed while requested
//     or scheduled
//   - check-in may complete (done) from any status except done, and may
//     re-enter done as an idempotent no-op
func ValidateTransition(from, to Status, actor Actor) error {
	open := from == StatusRequested || from == StatusScheduled

	switch actor {
	case ActorPerson:
		if to == StatusCancelled && open {
			return nil
		}
	case ActorLocation:
		if (to == StatusScheduled || to == StatusMissed) && open {
			return nil
		}
	case ActorCheckIn:
		if to == StatusDone {
			return nil
		}
	}

	return ErrTransitionNotAllowed
}
