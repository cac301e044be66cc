// Package node wires together every other package into one running ring
// member: the CQL client listener, the node-to-node delegation and seed
// listeners, the gossip and hinted-handoff schedules, and the metrics and
// health HTTP endpoints.
package node

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ringkeep/ringnode/pkg/auth"
	"github.com/ringkeep/ringnode/pkg/cluster"
	"github.com/ringkeep/ringnode/pkg/coordinator"
	"github.com/ringkeep/ringnode/pkg/errs"
	"github.com/ringkeep/ringnode/pkg/executor"
	"github.com/ringkeep/ringnode/pkg/gossip"
	"github.com/ringkeep/ringnode/pkg/hints"
	"github.com/ringkeep/ringnode/pkg/keyspace"
	"github.com/ringkeep/ringnode/pkg/log"
	"github.com/ringkeep/ringnode/pkg/metrics"
	"github.com/ringkeep/ringnode/pkg/model"
	"github.com/ringkeep/ringnode/pkg/parser"
	"github.com/ringkeep/ringnode/pkg/partitioner"
	"github.com/ringkeep/ringnode/pkg/query"
	"github.com/ringkeep/ringnode/pkg/readrepair"
	"github.com/ringkeep/ringnode/pkg/schedule"
	"github.com/ringkeep/ringnode/pkg/security"
	"github.com/ringkeep/ringnode/pkg/session"
	"github.com/ringkeep/ringnode/pkg/storage"
	"github.com/ringkeep/ringnode/pkg/transport"
	"github.com/ringkeep/ringnode/pkg/wire"
)

// Config holds everything needed to start one ring member.
type Config struct {
	NodeID            string
	IP                string
	DataDir           string
	QueryPort         int
	SeedPort          int
	DelegationPort    int
	GossipPort        int
	HintsReceiverPort int
	MetadataPort      int
	MetricsPort       int
	CredentialsPath   string // empty disables authentication
	JoinAddr          string // empty bootstraps a brand new ring with this node as its only member
	ReplicationFactor int
	IsSeed            bool

	// ClusterID seeds the at-rest encryption key for the CA's root private
	// key (security.DeriveKeyFromClusterID); every node in the ring must be
	// configured with the same value.
	ClusterID string
}

// Node is one running ring member.
type Node struct {
	cfg Config

	Cluster   *cluster.Store
	Keyspaces *keyspace.Store
	Rows      storage.Store
	Hints     *hints.Store
	Auth      *auth.Authenticator
	CA        *security.CertAuthority

	ServerTLS *tls.Config
	ClientTLS *tls.Config

	Executor    *executor.Executor
	Coordinator *coordinator.Coordinator
	Collector   *metrics.Collector

	certDir string

	gossipTask       *schedule.Task
	hintsTask        *schedule.Task
	certRotationTask *schedule.Task

	// clients tracks every connected client's session snapshot by id, the
	// backing store for the metadata access port's "clients" sub-accessor
	// (spec 6).
	clients sync.Map
}

// New builds a Node from cfg, initializing on-disk stores and the node's
// mTLS identity. It does not start listening; call Start for that.
func New(cfg Config) (*Node, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, errs.Server(err, "creating data directory")
	}

	clusterStore := cluster.NewStore(filepath.Join(cfg.DataDir, "cluster.json"))
	keyspaceStore := keyspace.NewStore(filepath.Join(cfg.DataDir, "keyspaces"))
	rowStore, err := storage.NewFileStore(filepath.Join(cfg.DataDir, "rows"))
	if err != nil {
		return nil, err
	}
	hintsStore := hints.NewStore(filepath.Join(cfg.DataDir, "hints"))

	certDir, err := transport.CertDirFor(cfg.NodeID)
	if err != nil {
		return nil, err
	}
	if err := security.SetClusterEncryptionKey(security.DeriveKeyFromClusterID(cfg.ClusterID)); err != nil {
		return nil, errs.Server(err, "deriving cluster encryption key")
	}
	ca := security.NewCertAuthority(filepath.Join(cfg.DataDir, "ca.json"))

	n := &Node{
		cfg:       cfg,
		Cluster:   clusterStore,
		Keyspaces: keyspaceStore,
		Rows:      rowStore,
		Hints:     hintsStore,
		CA:        ca,
		Executor:  executor.New(keyspaceStore, rowStore),
		certDir:   certDir,
	}

	if cfg.CredentialsPath != "" {
		n.Auth = auth.New(cfg.CredentialsPath)
	}

	if err := n.bootstrapIdentity(certDir); err != nil {
		return nil, err
	}

	serverTLS, err := transport.ServerTLSConfig(certDir)
	if err != nil {
		return nil, err
	}
	clientTLS, err := transport.ClientTLSConfig(certDir)
	if err != nil {
		return nil, err
	}
	n.ServerTLS = serverTLS
	n.ClientTLS = clientTLS

	if err := n.bootstrapMembership(); err != nil {
		return nil, err
	}

	n.Coordinator = &coordinator.Coordinator{
		Delegate:   n.delegate,
		ReadRepair: n.repair,
	}
	n.Collector = metrics.NewCollector(clusterStore, hintsStore, keyspaceStore, rowStore)
	n.gossipTask = schedule.New("gossip", 5*time.Second, log.WithComponent("gossip"), n.gossipRound)
	n.hintsTask = schedule.New("hints-replay", 10*time.Second, log.WithComponent("hints"), n.replayHints)
	n.certRotationTask = schedule.New("cert-rotation", 1*time.Hour, log.WithComponent("security"), n.checkCertRotation)

	return n, nil
}

// bootstrapIdentity loads this node's CA/cert material from disk, or
// generates it on first boot (only the seed node mints the root CA; a
// joining node must already have received it out of band).
func (n *Node) bootstrapIdentity(certDir string) error {
	if err := n.CA.LoadFromFile(); err != nil {
		if !n.cfg.IsSeed {
			return errs.Server(err, "joining node has no CA material; copy ca.json from the seed first")
		}
		if err := n.CA.Initialize(); err != nil {
			return err
		}
		if err := n.CA.SaveToFile(); err != nil {
			return err
		}
	}

	if security.CertExists(certDir) {
		return nil
	}
	cert, err := n.CA.IssueNodeCertificate(n.cfg.IP, nil, []net.IP{net.ParseIP(n.cfg.IP)})
	if err != nil {
		return err
	}
	if err := security.SaveCertToFile(cert, certDir); err != nil {
		return err
	}
	return security.SaveCACertToFile(n.CA.GetRootCACert(), certDir)
}

// bootstrapMembership initializes the cluster view: as the sole seed on a
// brand new ring, or by joining an existing one through JoinAddr.
func (n *Node) bootstrapMembership() error {
	if _, err := n.Cluster.Read(); err == nil {
		return nil
	}

	self := model.Node{IP: n.cfg.IP, State: model.Active, IsSeed: n.cfg.IsSeed, TimestampMs: time.Now().UnixMilli()}
	if n.cfg.JoinAddr == "" {
		return n.Cluster.Init(cluster.View{OwnNode: self}.WithRecomputedRanges())
	}

	self.State = model.Booting
	peers, err := gossip.Join(transport.JoinHostPort(n.cfg.JoinAddr, n.cfg.SeedPort), n.ClientTLS, self)
	if err != nil {
		return err
	}
	self.State = model.Active
	view := cluster.View{OwnNode: self, OtherNodes: peers}.WithRecomputedRanges()
	return n.Cluster.Init(view)
}

// Start begins serving on every listener and background schedule. It
// blocks until ctx is canceled.
func (n *Node) Start(ctx context.Context) error {
	queryLn, err := tls.Listen("tcp", transport.JoinHostPort(n.cfg.IP, n.cfg.QueryPort), n.ServerTLS)
	if err != nil {
		return errs.Server(err, "starting query listener")
	}
	seedLn, err := tls.Listen("tcp", transport.JoinHostPort(n.cfg.IP, n.cfg.SeedPort), n.ServerTLS)
	if err != nil {
		return errs.Server(err, "starting seed listener")
	}
	delegationLn, err := tls.Listen("tcp", transport.JoinHostPort(n.cfg.IP, n.cfg.DelegationPort), n.ServerTLS)
	if err != nil {
		return errs.Server(err, "starting delegation listener")
	}
	hintsLn, err := tls.Listen("tcp", transport.JoinHostPort(n.cfg.IP, n.cfg.HintsReceiverPort), n.ServerTLS)
	if err != nil {
		return errs.Server(err, "starting hints receiver listener")
	}
	metaLn, err := net.Listen("tcp", transport.JoinHostPort("127.0.0.1", n.cfg.MetadataPort))
	if err != nil {
		return errs.Server(err, "starting metadata access listener")
	}

	go n.serveQuery(queryLn)
	go func() {
		seedListener := &gossip.SeedListener{Store: n.Cluster, ServerTLS: n.ServerTLS}
		if err := seedListener.Serve(seedLn); err != nil {
			log.Errorf("seed listener stopped", err)
		}
	}()
	go n.serveDelegation(delegationLn)
	go func() {
		receiver := &hints.Receiver{Apply: n.applyHint, OnComplete: n.markSelfActive}
		if err := receiver.Serve(hintsLn); err != nil {
			log.Errorf("hints receiver stopped", err)
		}
	}()
	go n.serveMetadataAccess(metaLn)

	n.gossipTask.Start()
	n.hintsTask.Start()
	n.certRotationTask.Start()
	n.Collector.Start()

	metrics.RegisterComponent("storage", true, "")
	metrics.RegisterComponent("cluster", true, "")
	metrics.RegisterComponent("gossip", true, "")

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/healthz", metrics.HealthHandler())
	mux.Handle("/readyz", metrics.ReadyHandler())
	mux.Handle("/livez", metrics.LivenessHandler())
	metricsSrv := &http.Server{Addr: transport.JoinHostPort(n.cfg.IP, n.cfg.MetricsPort), Handler: mux}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("metrics server stopped", err)
		}
	}()

	<-ctx.Done()

	n.gossipTask.Stop()
	n.hintsTask.Stop()
	n.certRotationTask.Stop()
	n.Collector.Stop()
	queryLn.Close()
	seedLn.Close()
	delegationLn.Close()
	hintsLn.Close()
	metaLn.Close()
	return metricsSrv.Close()
}

func (n *Node) gossipRound() error {
	emitter := &gossip.Emitter{Store: n.Cluster, ClientTLS: n.ClientTLS, GossipPort: n.cfg.GossipPort}
	err := emitter.Round(context.Background())
	if err != nil {
		metrics.GossipRoundsTotal.WithLabelValues("failure").Inc()
		metrics.UpdateComponent("gossip", false, err.Error())
	} else {
		metrics.GossipRoundsTotal.WithLabelValues("success").Inc()
		metrics.UpdateComponent("gossip", true, "")
	}
	return err
}

// replayHints streams every Active peer's queued hints to its dedicated
// hints-receiver port (spec 4.7/6): the peer itself applies them and
// marks itself Active once the stream completes; this node only clears
// its local log once every hint has been ACKed.
func (n *Node) replayHints() error {
	nowMs := time.Now().UnixMilli()
	view, err := n.Cluster.Read()
	if err != nil {
		return err
	}
	sender := &hints.Sender{Store: n.Hints}
	for _, peer := range view.OtherNodes {
		if peer.State != model.Active || !n.Hints.HasPending(peer.IP) {
			continue
		}
		pending, err := n.Hints.ReadAll(peer.IP, nowMs)
		if err != nil {
			log.Errorf("hint replay: reading pending hints for "+peer.IP+" failed, will retry", err)
			continue
		}
		if len(pending) == 0 {
			continue
		}
		conn, err := transport.Dial(transport.JoinHostPort(peer.IP, n.cfg.HintsReceiverPort), n.ClientTLS)
		if err != nil {
			log.Errorf("hint replay: dialing "+peer.IP+" failed, will retry", err)
			continue
		}
		if err := sender.Send(conn, peer.IP, pending); err != nil {
			log.Errorf("hint replay: streaming to "+peer.IP+" failed, will retry", err)
			conn.Close()
			continue
		}
		conn.Close()
		metrics.HintsReplayedTotal.Add(float64(len(pending)))
	}
	return n.Hints.Sweep(nowMs)
}

// applyHint executes one replayed hint's query against local storage,
// the hints.Apply callback for this node's hints.Receiver.
func (n *Node) applyHint(h hints.Hint) error {
	_, err := n.Executor.Execute(h.Keyspace, h.Query, time.Now().UnixMilli())
	return err
}

// checkCertRotation reissues this node's mTLS certificate once it falls
// within the rotation window (security.CertNeedsRotation's 30-day
// threshold), validates the new leaf against the cluster's root before
// trusting it, and swaps it into the live TLS configs in place so
// already-listening sockets pick it up on their next handshake without a
// restart.
func (n *Node) checkCertRotation() error {
	current, err := security.LoadCertFromFile(n.certDir)
	if err != nil {
		return errs.Server(err, "loading node certificate for rotation check")
	}
	if !security.CertNeedsRotation(current.Leaf) {
		return nil
	}
	log.Info(fmt.Sprintf("cert-rotation: certificate expires in %s, rotating", security.GetCertTimeRemaining(current.Leaf)))

	issued, err := n.CA.IssueNodeCertificate(n.cfg.IP, nil, []net.IP{net.ParseIP(n.cfg.IP)})
	if err != nil {
		return errs.Server(err, "issuing rotated node certificate")
	}
	leaf, err := x509.ParseCertificate(issued.Certificate[0])
	if err != nil {
		return errs.Server(err, "parsing rotated node certificate")
	}
	root, err := x509.ParseCertificate(n.CA.GetRootCACert())
	if err != nil {
		return errs.Server(err, "parsing root CA certificate")
	}
	if err := security.ValidateCertChain(leaf, root); err != nil {
		return errs.Server(err, "rotated certificate failed chain validation")
	}

	if err := security.RemoveCerts(n.certDir); err != nil {
		return errs.Server(err, "removing expiring certificate")
	}
	if err := security.SaveCertToFile(issued, n.certDir); err != nil {
		return errs.Server(err, "saving rotated certificate")
	}
	if err := security.SaveCACertToFile(n.CA.GetRootCACert(), n.certDir); err != nil {
		return errs.Server(err, "saving root CA alongside rotated certificate")
	}

	n.ServerTLS.Certificates = []tls.Certificate{*issued}
	n.ClientTLS.Certificates = []tls.Certificate{*issued}

	info := security.GetCertInfo(leaf)
	log.Info(fmt.Sprintf("cert-rotation: now serving certificate %v, expiring %s", info["serial_number"], security.GetCertExpiry(leaf).Format(time.RFC3339)))
	return nil
}

// markSelfActive transitions this node from Booting/Recovering to Active
// once a hints.Receiver stream completes (spec 4.10).
func (n *Node) markSelfActive() error {
	view, err := n.Cluster.Read()
	if err != nil {
		return err
	}
	if view.OwnNode.State == model.Active {
		return nil
	}
	return n.Cluster.Write(view.SetState(view.OwnNode.IP, model.Active))
}

// repair pushes the reconciled winner of a SELECT fan-out to every
// replica whose reply disagreed with it (spec 4.9.1).
func (n *Node) repair(ks, table string, replies []coordinator.Reply) {
	sources := make([]readrepair.Source, 0, len(replies))
	for _, r := range replies {
		if r.Err == nil {
			sources = append(sources, readrepair.Source{NodeIP: r.NodeIP, Rows: r.Rows})
		}
	}
	reconciled := readrepair.Reconcile(sources)
	for _, rec := range reconciled {
		if len(rec.StaleReplicas) == 0 {
			continue
		}
		metrics.ReadRepairsTotal.Add(float64(len(rec.StaleReplicas)))
		for _, ip := range rec.StaleReplicas {
			if ip == n.cfg.IP {
				if err := n.Rows.UpsertRow(ks, table, rec.Row); err != nil {
					log.Errorf("read repair: local upsert failed", err)
				}
				continue
			}
			go n.repairRemote(ip, ks, table, rec.Row)
		}
	}
}

func (n *Node) repairRemote(ip, ks, table string, row model.Row) {
	conn, err := transport.Dial(transport.JoinHostPort(ip, n.cfg.DelegationPort), n.ClientTLS)
	if err != nil {
		log.Errorf("read repair: dialing "+ip+" failed", err)
		return
	}
	defer conn.Close()

	payload, err := encodeDelegationMsg(delegationMsg{Kind: msgUpsert, Keyspace: ks, Table: table, Row: row})
	if err != nil {
		log.Errorf("read repair: encoding upsert", err)
		return
	}
	if err := transport.WriteFrame(conn, payload); err != nil {
		log.Errorf("read repair: sending upsert to "+ip, err)
	}
}

// Ring builds the consistent-hashing ring view from the current
// membership, used to resolve which nodes own a partition's writes.
func (n *Node) Ring() (partitioner.Ring, error) {
	view, err := n.Cluster.Read()
	if err != nil {
		return partitioner.Ring{}, err
	}
	return partitioner.NewRing(view.AllNodes()), nil
}

// ReplicaSet resolves the nodes responsible for a partition key inside
// ks, consulting the keyspace's configured replication factor.
func (n *Node) ReplicaSet(ks, partitionKey string) ([]model.Node, error) {
	meta, err := n.Keyspaces.Read(ks)
	if err != nil {
		return nil, err
	}
	ring, err := n.Ring()
	if err != nil {
		return nil, err
	}
	token := partitioner.HashKey(partitionKey)
	return ring.ReplicaSet(token, meta.ReplicationFactor)
}

// delegate is the coordinator.Delegate implementation: it runs q locally
// if nodeIP is this node, or dials the remote node's delegation listener
// otherwise. A failed remote call queues a hint for later replay instead
// of propagating the error for writes, matching hinted handoff (spec
// 4.10); reads still surface the failure to the coordinator.
func (n *Node) delegate(ctx context.Context, nodeIP, ks string, q query.Query) ([]model.Row, error) {
	if nodeIP == n.cfg.IP {
		return n.Executor.Execute(ks, q, time.Now().UnixMilli())
	}

	conn, err := transport.Dial(transport.JoinHostPort(nodeIP, n.cfg.DelegationPort), n.ClientTLS)
	if err != nil {
		return n.hintOrFail(nodeIP, ks, q, err)
	}
	defer conn.Close()

	payload, err := encodeDelegationMsg(delegationMsg{Kind: msgQuery, Keyspace: ks, Query: q})
	if err != nil {
		return nil, err
	}
	if err := transport.WriteFrame(conn, payload); err != nil {
		return n.hintOrFail(nodeIP, ks, q, err)
	}
	respData, err := transport.ReadFrame(conn)
	if err != nil {
		return n.hintOrFail(nodeIP, ks, q, err)
	}
	return wire.DecodeRows(respData)
}

func (n *Node) hintOrFail(nodeIP, ks string, q query.Query, cause error) ([]model.Row, error) {
	if !q.IsWrite() {
		return nil, errs.Unavailable("replica %s unreachable: %v", nodeIP, cause)
	}
	hint := hints.Hint{Keyspace: ks, Query: q, TimestampMs: time.Now().UnixMilli()}
	if err := n.Hints.Append(nodeIP, hint); err != nil {
		return nil, err
	}
	metrics.HintsStoredTotal.Inc()
	return nil, nil
}

// serveDelegation accepts node-to-node connections carrying either a
// query to execute locally (the coordinator's fan-out) or a reconciled
// row to upsert verbatim (read-repair's push side).
func (n *Node) serveDelegation(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go func() {
			defer conn.Close()
			data, err := transport.ReadFrame(conn)
			if err != nil {
				return
			}
			msg, err := decodeDelegationMsg(data)
			if err != nil {
				log.Errorf("delegation: decoding message", err)
				return
			}

			switch msg.Kind {
			case msgUpsert:
				if err := n.Rows.UpsertRow(msg.Keyspace, msg.Table, msg.Row); err != nil {
					log.Errorf("delegation: applying repair upsert", err)
				}
			case msgQuery:
				rows, err := n.Executor.Execute(msg.Keyspace, msg.Query, time.Now().UnixMilli())
				if err != nil {
					log.Errorf("delegation: executing query", err)
					return
				}
				resp, err := wire.EncodeRows(rows)
				if err != nil {
					return
				}
				_ = transport.WriteFrame(conn, resp)
			}
		}()
	}
}

func (n *Node) serveQuery(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		metrics.ConnectionsTotal.Inc()
		go n.handleQueryConn(conn)
	}
}

// handleQueryConn runs one client's CQL-framed session to completion:
// STARTUP/auth negotiation followed by a QUERY/RESULT loop (spec 4.1,
// 4.9).
func (n *Node) handleQueryConn(conn net.Conn) {
	defer conn.Close()
	defer metrics.ConnectionsTotal.Dec()
	sess := newClientSession(n.Auth)
	defer n.clients.Delete(sess.session.Client.ID)

	for {
		frame, err := wire.ReadFrame(conn)
		if err != nil {
			return
		}
		metrics.FramesTotal.WithLabelValues(fmt.Sprintf("%d", frame.Opcode)).Inc()

		reply, closeAfter := n.handleFrame(sess, frame)
		n.clients.Store(sess.session.Client.ID, sess.session.Client)
		if err := wire.WriteFrame(conn, reply, frame.Flags&wire.FlagCompressed != 0); err != nil {
			return
		}
		if closeAfter {
			return
		}
	}
}

func (n *Node) handleFrame(sess *clientSession, frame wire.Frame) (wire.Frame, bool) {
	if err := sess.session.Allow(frame.Opcode); err != nil {
		return wire.ErrorFrame(frame, err), false
	}

	switch frame.Opcode {
	case wire.OpStartup:
		return n.handleStartup(sess, frame)
	case wire.OpAuthResponse, wire.OpCredentials:
		return n.handleAuth(sess, frame)
	case wire.OpOptions:
		return wire.Frame{Version: frame.Version, Stream: frame.Stream, Opcode: wire.OpSupported}, false
	case wire.OpQuery:
		return n.handleQuery(sess, frame)
	default:
		return wire.ErrorFrame(frame, errs.Protocol("unhandled opcode %d", frame.Opcode)), false
	}
}

func (n *Node) handleStartup(sess *clientSession, frame wire.Frame) (wire.Frame, bool) {
	if n.Auth == nil {
		sess.session.AllowAnonymous()
		return wire.Frame{Version: frame.Version, Stream: frame.Stream, Opcode: wire.OpReady}, false
	}
	sess.session.Startup()
	return wire.Frame{Version: frame.Version, Stream: frame.Stream, Opcode: wire.OpAuthenticate}, false
}

func (n *Node) handleAuth(sess *clientSession, frame wire.Frame) (wire.Frame, bool) {
	user, pass, err := auth.DecodePlainResponse(frame.Body)
	if err != nil {
		return wire.ErrorFrame(frame, err), true
	}
	ok, err := n.Auth.Validate(user, pass)
	if err != nil {
		return wire.ErrorFrame(frame, err), true
	}
	if !ok {
		return wire.ErrorFrame(frame, errs.Authentication("invalid credentials")), true
	}
	sess.session.Authorize()
	return wire.Frame{Version: frame.Version, Stream: frame.Stream, Opcode: wire.OpAuthSuccess}, false
}

func (n *Node) handleQuery(sess *clientSession, frame wire.Frame) (wire.Frame, bool) {
	reader := wire.NewReader(frame.Body)
	text, err := reader.ReadLongString()
	if err != nil {
		return wire.ErrorFrame(frame, err), false
	}
	consistencyCode, err := reader.ReadShort()
	if err != nil {
		return wire.ErrorFrame(frame, err), false
	}
	level := wire.ConsistencyFromCode(consistencyCode)

	q, err := sess.parse(text)
	if err != nil {
		return wire.ErrorFrame(frame, err), false
	}

	ks := q.Keyspace()
	if ks == "" {
		ks = sess.session.Client.CurrentKeyspace()
	}

	if q.Kind == query.KindUse {
		sess.session.Client.UseKeyspace(q.Use.Keyspace)
	}
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.QueryDuration, string(q.Kind))

	rows, err := n.execute(ks, q, level)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues(string(q.Kind), "error").Inc()
		return wire.ErrorFrame(frame, err), false
	}
	metrics.QueriesTotal.WithLabelValues(string(q.Kind), "success").Inc()
	body, err := wire.EncodeRows(rows)
	if err != nil {
		return wire.ErrorFrame(frame, err), false
	}
	return wire.Frame{Version: frame.Version, Stream: frame.Stream, Opcode: wire.OpResult, Body: body}, false
}

// execute resolves the replica set a query needs. get_partition() == None
// (spec 4.5) covers USE, which is purely session-local, and every
// keyspace/schema mutation, which must land on the full cluster rather
// than a single partition's replica set — those fan out to every node at
// consistency ALL regardless of the client's requested level, since
// metadata has to agree everywhere, not just at quorum.
func (n *Node) execute(ks string, q query.Query, level model.ConsistencyLevel) ([]model.Row, error) {
	if q.Kind == query.KindUse {
		return n.Executor.Execute(ks, q, time.Now().UnixMilli())
	}

	switch q.Kind {
	case query.KindCreateKeyspace, query.KindDropKeyspace, query.KindCreateTable,
		query.KindDropTable, query.KindAlterTable:
		view, err := n.Cluster.Read()
		if err != nil {
			return nil, err
		}
		return n.Coordinator.Execute(context.Background(), ks, q, view.AllNodes(), model.All)
	}

	meta, err := n.Keyspaces.Read(ks)
	if err != nil {
		return nil, err
	}
	schema, ok := meta.Tables[q.Table()]
	if !ok {
		return nil, errs.Invalid("table %q not found in keyspace %q", q.Table(), ks)
	}
	partitionKey, ok := q.PartitionKeyString(schema)
	if !ok {
		// get_partition() == None (spec 4.5): the statement's WHERE clause
		// doesn't pin every partition-key column, so it applies to every
		// node that could own a matching row.
		view, err := n.Cluster.Read()
		if err != nil {
			return nil, err
		}
		return n.Coordinator.Execute(context.Background(), ks, q, view.AllNodes(), level)
	}
	ring, err := n.Ring()
	if err != nil {
		return nil, err
	}
	replicas, err := ring.ReplicaSet(partitioner.HashKey(partitionKey), meta.ReplicationFactor)
	if err != nil {
		return nil, err
	}
	return n.Coordinator.Execute(context.Background(), ks, q, replicas, level)
}

// clientSession pairs the connection's protocol state machine with the
// parser it uses to turn QUERY frame bodies into query.Query values.
type clientSession struct {
	session *session.Session
}

func newClientSession(_ *auth.Authenticator) *clientSession {
	return &clientSession{session: session.New()}
}

func (c *clientSession) parse(text string) (query.Query, error) {
	return parser.Parse(text)
}

func (n *Node) String() string {
	return fmt.Sprintf("node %s (%s)", n.cfg.NodeID, n.cfg.IP)
}

// Metadata access selectors (spec 6): which MetaDataHandler sub-accessor
// a request names.
const (
	metaSelectNodes     byte = 1
	metaSelectKeyspaces byte = 2
	metaSelectClients   byte = 3
)

// serveMetadataAccess runs the metadata access port: a local, loopback-
// only control channel callers on this machine use to snapshot the
// node's metadata handle without going through the CQL protocol (spec
// 6's MetaDataHandler). Unlike the gossip/delegation/hints ports, it
// never crosses the network to another node, so it isn't TLS-guarded.
func (n *Node) serveMetadataAccess(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go func() {
			defer conn.Close()
			if err := n.handleMetadataAccess(conn); err != nil {
				log.Errorf("metadata access: serving request", err)
			}
		}()
	}
}

func (n *Node) handleMetadataAccess(conn net.Conn) error {
	selector := make([]byte, 1)
	if _, err := conn.Read(selector); err != nil {
		return errs.Server(err, "reading metadata selector")
	}

	var payload []byte
	var err error
	switch selector[0] {
	case metaSelectNodes:
		var view cluster.View
		if view, err = n.Cluster.Read(); err == nil {
			payload, err = json.Marshal(view)
		}
	case metaSelectKeyspaces:
		payload, err = n.marshalKeyspaces()
	case metaSelectClients:
		payload, err = n.marshalClients()
	default:
		err = errs.Protocol("unknown metadata selector %d", selector[0])
	}
	if err != nil {
		return err
	}
	return transport.WriteFrame(conn, payload)
}

func (n *Node) marshalKeyspaces() ([]byte, error) {
	names, err := n.Keyspaces.List()
	if err != nil {
		return nil, err
	}
	all := make(map[string]model.KeyspaceMeta, len(names))
	for _, name := range names {
		meta, err := n.Keyspaces.Read(name)
		if err != nil {
			return nil, err
		}
		all[name] = meta
	}
	return json.Marshal(all)
}

func (n *Node) marshalClients() ([]byte, error) {
	var sessions []model.ClientSession
	n.clients.Range(func(_, v any) bool {
		sessions = append(sessions, v.(model.ClientSession))
		return true
	})
	return json.Marshal(sessions)
}
