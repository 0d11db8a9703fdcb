package consts

// UpdateStatusType 更新状态
type UpdateStatusType string

const (
	// UpdatedNothing 未改变
	UpdatedNothing UpdateStatusType = "UnChanged"
	// UpdatedFailed 更新失败
	UpdatedFailed UpdateStatusType = "Failure"
	// UpdatedSuccess 更新成功
	UpdatedSuccess UpdateStatusType = "Success"
)

const (
	RecordTypeA    = "A"
	RecordTypeAAAA = "AAAA"
)

const (
	DefaultConfigFile       = "config.toml"
	DefaultDaemonInterval   = "5m"
	DefaultNameserver       = "1.1.1.1:53"
	NetworkConnectedTimeout = 5
)

const (
	StatusReady   int32 = 0  // Job or Timer is ready for running.
	StatusRunning int32 = 1  // Job or Timer is already running.
	StatusStopped int32 = 2  // Job or Timer is stopped.
	StatusClosed  int32 = -1 // Job or Timer is closed and waiting to be deleted.
)
