package socketio

// stateCompareKeys lists the playback state fields that participate in
// broadcast deduplication. currentTime is deliberately excluded: clients
// interpolate position locally between broadcasts, so a state whose only
// drift is the clock should not fan out to every connection.
var stateCompareKeys = []string{"playing", "duration", "volume", "muted", "rate"}

// saveLastState records the most recently broadcast state for diffing.
func (s *Server) saveLastState(state map[string]interface{}) {
	s.lastStateMu.Lock()
	defer s.lastStateMu.Unlock()

	saved := make(map[string]interface{}, len(stateCompareKeys))
	for _, key := range stateCompareKeys {
		saved[key] = state[key]
	}
	s.lastState = saved
}

// isStateSame reports whether the given state matches the last broadcast
// state on every compared key. A nil last state always differs.
func (s *Server) isStateSame(state map[string]interface{}) bool {
	s.lastStateMu.Lock()
	defer s.lastStateMu.Unlock()

	if s.lastState == nil {
		return false
	}
	for _, key := range stateCompareKeys {
		if s.lastState[key] != state[key] {
			return false
		}
	}
	return true
}
