package discovery

import "slices"

// bridgeSet is the browse state: one service per instance name, holding
// the union of the addresses seen on every interface.
type bridgeSet map[string]*BridgeService

// observe records svc and reports whether its instance was unknown.
func (s bridgeSet) observe(svc *BridgeService) bool {
	known, ok := s[svc.InstanceName]
	if !ok {
		s[svc.InstanceName] = svc
		return true
	}
	for _, addr := range svc.Addresses {
		if !slices.Contains(known.Addresses, addr) {
			known.Addresses = append(known.Addresses, addr)
		}
	}
	return false
}

// forget drops addrs from an instance. The instance is removed, and may be
// reported again later, once it has no address left.
func (s bridgeSet) forget(instance string, addrs []string) {
	known, ok := s[instance]
	if !ok {
		return
	}
	known.Addresses = slices.DeleteFunc(known.Addresses, func(a string) bool {
		return slices.Contains(addrs, a)
	})
	if len(known.Addresses) == 0 {
		delete(s, instance)
	}
}
