package force

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/puppet/rig/core"
)

// Task is a per-tick request against one joint. It is a closed sum type:
// *Single or *Multi. Consumers switch over both and panic on anything else.
type Task interface {
	Target() core.HumanBone
	isTask()
}

// Single is one contact's intended effect on a joint. Force is the world-space
// displacement the contact point should make. Orientation, when set, is the
// world orientation the joint should reach.
type Single struct {
	Bone             core.HumanBone
	Contact          mgl32.Vec3
	Force            mgl32.Vec3
	Orientation      *mgl32.Quat
	Push             bool
	AllowTranslation bool

	// spin is a world-space rotation still owed by a descendant.
	spin *mgl32.Quat
	// derived tasks come from the engine itself and never record feedback.
	derived bool
	// replay marks feedback corrections: no forwarding, no new feedback.
	replay bool
}

func (s *Single) Target() core.HumanBone { return s.Bone }
func (*Single) isTask()                  {}

// Multi gathers concurrent contacts on one joint.
type Multi struct {
	Bone     core.HumanBone
	Contacts []*Single
}

func (m *Multi) Target() core.HumanBone { return m.Bone }
func (*Multi) isTask()                  {}

// Feedback replays a pull after ancestors moved: the contact, fixed in the
// joint's frame, should end up at Goal.
type Feedback struct {
	Bone  core.HumanBone
	Goal  mgl32.Vec3
	Local mgl32.Vec3
}

// merge folds incoming into existing, promoting a Single to a Multi.
func merge(existing, incoming Task) Task {
	if existing == nil {
		return incoming
	}
	var contacts []*Single
	switch t := existing.(type) {
	case *Single:
		contacts = append(contacts, t)
	case *Multi:
		contacts = append(contacts, t.Contacts...)
	default:
		panic("force: unknown task type")
	}
	switch t := incoming.(type) {
	case *Single:
		contacts = append(contacts, t)
	case *Multi:
		contacts = append(contacts, t.Contacts...)
	default:
		panic("force: unknown task type")
	}
	return &Multi{Bone: existing.Target(), Contacts: contacts}
}
