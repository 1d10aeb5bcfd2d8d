package notify

// Registry is a ChannelRegistry that remembers registration order.
type Registry struct {
	channels map[string]Channel
	order    []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		channels: make(map[string]Channel),
	}
}

// Register adds ch under its name. Registering a name again replaces the
// channel but keeps its position.
func (r *Registry) Register(ch Channel) {
	name := ch.Name()
	if _, ok := r.channels[name]; !ok {
		r.order = append(r.order, name)
	}
	r.channels[name] = ch
}

// Get returns the channel registered under name.
func (r *Registry) Get(name string) (Channel, bool) {
	ch, ok := r.channels[name]
	return ch, ok
}

// Names returns channel names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
