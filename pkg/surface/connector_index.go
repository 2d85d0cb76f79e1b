package surface

import "github.com/quillboard/goquill/pkg/element"

// Connector endpoint index: connectorsByEndpoint maps any element id to the
// connectors referencing it as source or target; endpointsOf caches each
// connector's current (source, target) pair so unchanged updates short-
// circuit.

type endpointPair struct {
	source string
	target string
}

// syncConnector reconciles the endpoint index with a connector's current
// source/target. No-op when the pair is unchanged.
func (m *Model) syncConnector(el *element.Model) {
	id := el.ID()
	next := endpointPair{source: el.SourceID(), target: el.TargetID()}
	old, had := m.endpointsOf[id]
	if had && old == next {
		return
	}
	if had {
		m.removeEndpointRef(old.source, id)
		m.removeEndpointRef(old.target, id)
	}
	m.addEndpointRef(next.source, id)
	m.addEndpointRef(next.target, id)
	m.endpointsOf[id] = next
}

// removeConnector purges a connector's endpoint associations and cached pair.
func (m *Model) removeConnector(id string) {
	old, had := m.endpointsOf[id]
	if !had {
		return
	}
	m.removeEndpointRef(old.source, id)
	m.removeEndpointRef(old.target, id)
	delete(m.endpointsOf, id)
}

// GetConnectors returns live connector models referencing id as an endpoint,
// ordered by connector id. Index entries that no longer resolve to a live
// connector are stale; they are purged on read and never surfaced as errors.
func (m *Model) GetConnectors(id string) []*element.Model {
	set := m.connectorsByEndpoint[id]
	if len(set) == 0 {
		return nil
	}
	ids := make([]string, 0, len(set))
	for cid := range set {
		ids = append(ids, cid)
	}
	sortStrings(ids)
	var out []*element.Model
	for _, cid := range ids {
		el, ok := m.elements[cid]
		if !ok || !el.IsConnector() {
			delete(set, cid)
			m.log.Debug().Str("endpoint", id).Str("connector", cid).
				Msg("purged stale connector index entry")
			continue
		}
		out = append(out, el)
	}
	if len(set) == 0 {
		delete(m.connectorsByEndpoint, id)
	}
	return out
}

func (m *Model) addEndpointRef(endpointID, connectorID string) {
	if endpointID == "" {
		return
	}
	set := m.connectorsByEndpoint[endpointID]
	if set == nil {
		set = make(map[string]struct{})
		m.connectorsByEndpoint[endpointID] = set
	}
	set[connectorID] = struct{}{}
}

func (m *Model) removeEndpointRef(endpointID, connectorID string) {
	if endpointID == "" {
		return
	}
	set := m.connectorsByEndpoint[endpointID]
	if set == nil {
		return
	}
	delete(set, connectorID)
	if len(set) == 0 {
		delete(m.connectorsByEndpoint, endpointID)
	}
}

func sortStrings(a []string) {
	for i := 0; i < len(a)-1; i++ {
		for j := i + 1; j < len(a); j++ {
			if a[i] > a[j] {
				a[i], a[j] = a[j], a[i]
			}
		}
	}
}
