package rancher

// Service lifecycle states the upgrade flow cares about. The control plane
// reports an open set of states; anything else is treated as unexpected.
const (
	StateActive    = "active"
	StateUpgrading = "upgrading"
	StateUpgraded  = "upgraded"
)

// Action names exposed by the control plane per service.
const (
	ActionUpgrade       = "upgrade"
	ActionFinishUpgrade = "finishupgrade"
)

// Service is a snapshot of a service as reported by the control plane.
// Launch configs are kept as generic maps so fields the upgrade flow does not
// touch pass through the submit payload unmodified.
type Service struct {
	ID                     string                   `json:"id,omitempty"`
	Name                   string                   `json:"name"`
	State                  string                   `json:"state"`
	LaunchConfig           map[string]interface{}   `json:"launchConfig,omitempty"`
	SecondaryLaunchConfigs []map[string]interface{} `json:"secondaryLaunchConfigs,omitempty"`
	Actions                map[string]string        `json:"actions,omitempty"`
}

// Action returns the invocation URL for a named action. The second return
// reports whether the action is currently legal for this service's state.
func (s *Service) Action(name string) (string, bool) {
	url, ok := s.Actions[name]
	return url, ok
}

// HasAction reports whether the control plane currently offers the action.
func (s *Service) HasAction(name string) bool {
	_, ok := s.Actions[name]
	return ok
}

// serviceCollection is the envelope for list responses.
type serviceCollection struct {
	Data []Service `json:"data"`
}

// InServiceStrategy is the rollout pacing payload submitted with an upgrade.
type InServiceStrategy struct {
	BatchSize              int64                    `json:"batchSize"`
	IntervalMillis         int64                    `json:"intervalMillis"`
	StartFirst             bool                     `json:"startFirst"`
	LaunchConfig           map[string]interface{}   `json:"launchConfig"`
	SecondaryLaunchConfigs []map[string]interface{} `json:"secondaryLaunchConfigs"`
}

// upgradeBody wraps the strategy the way the upgrade action expects it.
type upgradeBody struct {
	InServiceStrategy InServiceStrategy `json:"inServiceStrategy"`
}
