package training

import "NetSentinel/internal/model"

// ModelState reports whether a trained model is installed.
type ModelState interface {
	IsTrained() bool
}

// Controller is the operator-facing training surface shared by the HTTP and
// gRPC front ends.
type Controller struct {
	coordinator *Coordinator
	model       ModelState
}

// NewController pairs the coordinator with the scorer's trained state.
func NewController(c *Coordinator, m ModelState) *Controller {
	return &Controller{coordinator: c, model: m}
}

// StartTraining begins baseline collection.
func (ctl *Controller) StartTraining() error {
	return ctl.coordinator.Start()
}

// ModelStatus reports the trained and collecting flags with buffer progress.
func (ctl *Controller) ModelStatus() model.ModelStatus {
	st := ctl.coordinator.Status()
	return model.ModelStatus{
		IsTrained:  ctl.model.IsTrained(),
		IsTraining: st.State == Collecting,
		Collected:  st.Collected,
		Target:     st.Target,
	}
}
