package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ringkeep/ringnode/pkg/log"
	"github.com/ringkeep/ringnode/pkg/node"
	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ringnode",
	Short: "ringnode - a replicated, partitioned, tabular key-value store",
	Long: `ringnode runs one member of a ring: a CQL-speaking client listener,
node-to-node delegation and gossip over mutual TLS, and a per-node
storage engine. Every node runs the same binary; cluster shape comes
entirely from flags and the membership each node gossips with its peers.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"ringnode version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(startCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start this process as one ring member",
	Long: `start brings up every listener and background schedule for one ring
member: the CQL client listener, the seed and delegation listeners used
by other nodes, the gossip and hinted-handoff schedules, and the
metrics/health HTTP endpoints. It then blocks until interrupted.

With no --join, this node bootstraps a brand new ring as its only
member; with --seed it also mints the cluster's root CA when no ca.json
exists yet. Every other node needs --join pointing
at an existing node's seed address, and needs the seed's ca.json copied
into its data directory before it can start (see pkg/security's
bootstrap notes).`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().String("node-id", "node-1", "Unique identifier for this node, also used to derive its certificate directory")
	startCmd.Flags().String("ip", "127.0.0.1", "IP address this node advertises to peers and clients")
	startCmd.Flags().String("data-dir", "./ringnode-data", "Directory for this node's cluster metadata, keyspaces, rows, and hints")
	startCmd.Flags().Int("query-port", 9042, "Port serving the CQL client protocol")
	startCmd.Flags().Int("seed-port", 7000, "Port serving cluster membership exchange for joining nodes")
	startCmd.Flags().Int("gossip-port", 7001, "Port serving peer-to-peer gossip rounds")
	startCmd.Flags().Int("delegation-port", 7002, "Port serving coordinator-to-replica query delegation")
	startCmd.Flags().Int("hints-receiver-port", 7003, "Port serving hinted-handoff replay streams from peers")
	startCmd.Flags().Int("metadata-port", 7004, "Loopback-only port serving local metadata-access requests")
	startCmd.Flags().Int("metrics-port", 9090, "Port serving /metrics, /healthz, /readyz, /livez")
	startCmd.Flags().String("credentials", "", "Path to the credentials file for client authentication (empty disables auth)")
	startCmd.Flags().String("join", "", "Seed address of an existing ring to join (empty bootstraps a new ring)")
	startCmd.Flags().Int("replication-factor", 3, "Stored in the node config only; keyspaces take their replication factor from CREATE KEYSPACE")
	startCmd.Flags().Bool("seed", false, "Mark this node as a seed: the only kind of node that mints the root CA when none exists")
	startCmd.Flags().String("cluster-id", "", "Shared secret identifying this ring; every node must use the same value (required)")
	_ = startCmd.MarkFlagRequired("cluster-id")
}

func runStart(cmd *cobra.Command, args []string) error {
	nodeID, _ := cmd.Flags().GetString("node-id")
	ip, _ := cmd.Flags().GetString("ip")
	dataDir, _ := cmd.Flags().GetString("data-dir")
	queryPort, _ := cmd.Flags().GetInt("query-port")
	seedPort, _ := cmd.Flags().GetInt("seed-port")
	gossipPort, _ := cmd.Flags().GetInt("gossip-port")
	delegationPort, _ := cmd.Flags().GetInt("delegation-port")
	hintsReceiverPort, _ := cmd.Flags().GetInt("hints-receiver-port")
	metadataPort, _ := cmd.Flags().GetInt("metadata-port")
	metricsPort, _ := cmd.Flags().GetInt("metrics-port")
	credentials, _ := cmd.Flags().GetString("credentials")
	join, _ := cmd.Flags().GetString("join")
	replicationFactor, _ := cmd.Flags().GetInt("replication-factor")
	isSeed, _ := cmd.Flags().GetBool("seed")
	clusterID, _ := cmd.Flags().GetString("cluster-id")

	cfg := node.Config{
		NodeID:            nodeID,
		IP:                ip,
		DataDir:           dataDir,
		QueryPort:         queryPort,
		SeedPort:          seedPort,
		DelegationPort:    delegationPort,
		GossipPort:        gossipPort,
		HintsReceiverPort: hintsReceiverPort,
		MetadataPort:      metadataPort,
		MetricsPort:       metricsPort,
		CredentialsPath:   credentials,
		JoinAddr:          join,
		ReplicationFactor: replicationFactor,
		IsSeed:            isSeed,
		ClusterID:         clusterID,
	}

	fmt.Printf("Starting ringnode %s at %s\n", nodeID, ip)
	fmt.Printf("  Data directory:   %s\n", dataDir)
	fmt.Printf("  Query port:       %d\n", queryPort)
	fmt.Printf("  Seed port:        %d\n", seedPort)
	fmt.Printf("  Gossip port:      %d\n", gossipPort)
	fmt.Printf("  Delegation port:  %d\n", delegationPort)
	fmt.Printf("  Hints port:       %d\n", hintsReceiverPort)
	fmt.Printf("  Metadata port:    %d (loopback only)\n", metadataPort)
	fmt.Printf("  Metrics port:     %d\n", metricsPort)
	if join != "" {
		fmt.Printf("  Joining ring via: %s\n", join)
	} else {
		fmt.Println("  Bootstrapping a new ring (no --join given)")
	}
	fmt.Println()

	n, err := node.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize node: %w", err)
	}

	fmt.Printf("✓ Node initialized: %s\n", n)
	fmt.Printf("✓ Metrics endpoint:  http://%s:%d/metrics\n", ip, metricsPort)
	fmt.Printf("✓ Health endpoints:  http://%s:%d/healthz, /readyz, /livez\n", ip, metricsPort)
	fmt.Println()
	fmt.Println("Node is running. Press Ctrl+C to stop.")

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- n.Start(ctx)
	}()

	go newTerminalControl(n, cancel).run()

	select {
	case <-sigCh:
		fmt.Println("\nShutting down...")
		cancel()
		return <-errCh
	case err := <-errCh:
		cancel()
		if err != nil {
			return fmt.Errorf("node stopped: %w", err)
		}
		return nil
	}
}
