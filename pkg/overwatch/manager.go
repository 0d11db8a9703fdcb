package overwatch

import "github.com/jxo-me/porkbun-ddns/core/service"

// Manager keeps at most one running service per name
type Manager interface {
	// Add starts the service, replacing a running one of the same name unless the hashes match
	Add(service service.IDDNSService)
	// Remove stops the named service
	Remove(string)
	Services() []service.IDDNSService
}
