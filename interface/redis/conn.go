package redis

// Connection represents a connection with redis client
type Connection interface {
	Write([]byte) error
	SetPassword(string)
	GetPassword() string

	// client should keep its subscribing channels
	Subscribe(channel string)
	UnSubscribe(channel string)
	SubsCount() int
	GetChannels() []string

	// used for `Multi` command
	InMultiState() bool
	SetMultiState(bool)
	GetQueuedCmdLine() [][][]byte
	EnqueueCmd([][]byte)
	ClearQueuedCmds()
	GetWatching() map[string]uint32

	// used for multi database
	GetDBIndex() int
	SelectDB(int)

	// RemoteAddr reports the client's network address, used by CLIENT
	// LIST and replica bookkeeping.
	RemoteAddr() string

	// Name identifies the connection for CLIENT SETNAME/GETNAME.
	Name() string
	SetName(string)

	// IsMaster/SetMaster mark a connection as the link a replica opened
	// to its master, so command dispatch can allow writes arriving on
	// it despite the server being in read-only replica mode.
	IsMaster() bool
	SetMaster(bool)

	// IsReplica/SetReplica mark a connection as a replica session on
	// the master side, so propagated writes and INFO replication can
	// find it.
	IsReplica() bool
	SetReplica(bool)

	// AddTxError records a command error observed while queuing inside
	// MULTI, so EXEC can refuse to run a tainted transaction.
	AddTxError(err error)
	GetTxErrors() []error
}
