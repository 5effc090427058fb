package request

// Sinks fans a recorded request out to several event sinks.
type Sinks []EventSink

func (s Sinks) RequestRecorded(ev RequestEvent) {
	for _, sink := range s {
		if sink != nil {
			sink.RequestRecorded(ev)
		}
	}
}
