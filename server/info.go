package server

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/ryanrussell/dragonfly/config"
	"github.com/ryanrussell/dragonfly/interface/redis"
	"github.com/ryanrussell/dragonfly/lib/mem"
	"github.com/ryanrussell/dragonfly/redis/protocol"
)

func registerInfoCommands() {
	register(&Command{Name: "INFO", Arity: -1, Flags: Readonly | Loading | Fast, Exec: execInfo})
}

// execInfo implements INFO [section], grounded on the teacher's
// serverInfo layout, extended with the persistence and replication
// fields spec.md 3/6 requires.
func execInfo(c *execContext, args [][]byte) redis.Reply {
	section := "all"
	if len(args) > 1 {
		section = strings.ToLower(string(args[1]))
	}

	var b strings.Builder
	write := func(name string, fn func(*strings.Builder)) {
		if section == "all" || section == name {
			fn(&b)
		}
	}

	write("server", c.infoServer)
	write("clients", c.infoClients)
	write("memory", c.infoMemory)
	write("persistence", c.infoPersistence)
	write("replication", c.infoReplication)
	write("cpu", c.infoCPU)
	write("keyspace", c.infoKeyspace)

	return protocol.MakeBulkReply([]byte(b.String()))
}

func (c *execContext) infoServer(b *strings.Builder) {
	fmt.Fprintf(b, "# Server\r\n"+
		"dragonfly_version:1.0.0\r\n"+
		"redis_mode:standalone\r\n"+
		"os:%s %s\r\n"+
		"arch_bits:64\r\n"+
		"process_id:%d\r\n"+
		"tcp_port:%d\r\n"+
		"run_id:%s\r\n"+
		"\r\n",
		runtime.GOOS, runtime.GOARCH, os.Getpid(), config.Properties.Port, c.rt.DflyCmd.MasterReplID())
}

func (c *execContext) infoClients(b *strings.Builder) {
	fmt.Fprintf(b, "# Clients\r\n"+
		"connected_clients:%d\r\n"+
		"\r\n",
		c.srv.ClientCount())
}

func (c *execContext) infoMemory(b *strings.Builder) {
	fmt.Fprintf(b, "# Memory\r\n"+
		"used_memory:%d\r\n"+
		"used_memory_human:%dM\r\n"+
		"maxmemory:%d\r\n"+
		"\r\n",
		mem.UsedBytes(), mem.UsedMegabytes(), config.Properties.Maxmemory)
}

func (c *execContext) infoPersistence(b *strings.Builder) {
	state := c.srv.getState()
	fmt.Fprintf(b, "# Persistence\r\n"+
		"loading:%d\r\n"+
		"rdb_changes_since_last_save:0\r\n"+
		"rdb_bgsave_in_progress:%d\r\n",
		boolToInt(state == stateLoading), boolToInt(c.rt.Snap.IsSaving()))

	info := c.rt.Snap.GetLastSaveInfo()
	if info == nil {
		fmt.Fprintf(b, "rdb_last_save_time:%d\r\n"+
			"rdb_last_bgsave_status:ok\r\n"+
			"\r\n", c.rt.BootTime.Unix())
		return
	}
	status := "ok"
	if info.Err != nil {
		status = "err"
	}
	fmt.Fprintf(b, "rdb_last_save_time:%d\r\n"+
		"rdb_last_bgsave_status:%s\r\n"+
		"rdb_last_save_duration_sec:%.3f\r\n",
		info.SaveTime.Unix(), status, info.Duration.Seconds())
	for k, v := range info.TypeCounts {
		fmt.Fprintf(b, "rdb_last_save_type_counts_%s:%d\r\n", strings.ToLower(k), v)
	}
	b.WriteString("\r\n")
}

func (c *execContext) infoReplication(b *strings.Builder) {
	role := c.srv.role()
	fmt.Fprintf(b, "# Replication\r\nrole:%s\r\n", role)
	if role == "slave" {
		info := c.rt.Replica.ReplicationInfo()
		fmt.Fprintf(b, "master_host:%s\r\n"+
			"master_port:%d\r\n"+
			"master_link_status:%s\r\n"+
			"master_sync_in_progress:%d\r\n",
			info.MasterHost, info.MasterPort, linkStatus(info.MasterLinkEstablished), boolToInt(info.SyncInProgress))
	}
	fmt.Fprintf(b, "connected_slaves:%d\r\n"+
		"master_replid:%s\r\n\r\n",
		c.rt.DflyCmd.SessionCount(), c.rt.DflyCmd.MasterReplID())
}

func (c *execContext) infoCPU(b *strings.Builder) {
	fmt.Fprintf(b, "# CPU\r\nnum_cpu_cores:%d\r\n\r\n", runtime.NumCPU())
}

func (c *execContext) infoKeyspace(b *strings.Builder) {
	b.WriteString("# Keyspace\r\n")
	for i := 0; i < c.rt.Databases(); i++ {
		size := c.rt.Shards.DBSize(i)
		if size > 0 {
			fmt.Fprintf(b, "db%d:keys=%d\r\n", i, size)
		}
	}
	b.WriteString("\r\n")
}

func linkStatus(up bool) string {
	if up {
		return "up"
	}
	return "down"
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

