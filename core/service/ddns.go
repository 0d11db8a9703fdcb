package service

// IDDNSService a long running updater managed by overwatch
type IDDNSService interface {
	// String unique name; a service with the same name replaces the running one
	String() string
	// Hash of the config the service was built from
	Hash() string
	// Start blocks until Stop
	Start() error
	Stop() error
}
