// Package monitoring serves the final state of a cache simulation over HTTP
// so that it can be inspected after a trace has been replayed.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/cachesim/mem/cache"
)

// Monitor turns the result of a simulation into a server. It only serves
// data registered with it, which must not change afterward.
type Monitor struct {
	portNumber int
	snapshot   *cache.Snapshot
	cpuProfile []byte
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterSnapshot sets the cache state to serve.
func (m *Monitor) RegisterSnapshot(s cache.Snapshot) {
	m.snapshot = &s
}

// RegisterCPUProfile sets a pprof CPU profile recorded during the replay.
func (m *Monitor) RegisterCPUProfile(data []byte) {
	m.cpuProfile = data
}

// Router returns the request router of the monitor.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/stats", m.listStats).Methods(http.MethodGet)
	r.HandleFunc("/api/config", m.listConfig).Methods(http.MethodGet)
	r.HandleFunc("/api/sets/{id:[0-9]+}", m.listSet).Methods(http.MethodGet)
	r.HandleFunc("/api/resources", m.listResources).Methods(http.MethodGet)
	r.HandleFunc("/api/profile", m.listProfile).Methods(http.MethodGet)

	return r
}

// StartServer starts serving in the background and returns the URL of the
// server.
func (m *Monitor) StartServer() (string, error) {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return "", fmt.Errorf("monitor: %w", err)
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	router := m.Router()

	go func() {
		err := http.Serve(listener, router)
		if err != nil {
			log.Printf("monitor stopped: %v", err)
		}
	}()

	return url, nil
}

type configRsp struct {
	Name      string `json:"name"`
	Policy    string `json:"policy"`
	NumSets   int    `json:"num_sets"`
	NumWays   int    `json:"num_ways"`
	BlockSize uint64 `json:"block_size"`
}

func (m *Monitor) listConfig(w http.ResponseWriter, _ *http.Request) {
	if !m.mustHaveSnapshot(w) {
		return
	}

	writeJSON(w, configRsp{
		Name:      m.snapshot.Name,
		Policy:    m.snapshot.Policy,
		NumSets:   m.snapshot.NumSets,
		NumWays:   m.snapshot.NumWays,
		BlockSize: m.snapshot.BlockSize,
	})
}

func (m *Monitor) listStats(w http.ResponseWriter, _ *http.Request) {
	if !m.mustHaveSnapshot(w) {
		return
	}

	writeJSON(w, m.snapshot.Stats)
}

func (m *Monitor) listSet(w http.ResponseWriter, r *http.Request) {
	if !m.mustHaveSnapshot(w) {
		return
	}

	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "bad set id", http.StatusBadRequest)
		return
	}

	set, found := m.snapshot.Set(id)
	if !found {
		http.Error(w, "set not found", http.StatusNotFound)
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(&set)
	serializer.SetMaxDepth(3)

	w.Header().Set("Content-Type", "application/json")

	err = serializer.Serialize(w)
	if err != nil {
		log.Printf("monitor: serialize set %d: %v", id, err)
	}
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	memoryInfo, err := proc.MemoryInfo()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memoryInfo.RSS,
	})
}

func (m *Monitor) listProfile(w http.ResponseWriter, _ *http.Request) {
	if len(m.cpuProfile) == 0 {
		http.Error(w, "no profile recorded", http.StatusNotFound)
		return
	}

	prof, err := profile.ParseData(m.cpuProfile)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, prof)
}

func (m *Monitor) mustHaveSnapshot(w http.ResponseWriter) bool {
	if m.snapshot == nil {
		http.Error(w, "no simulation registered", http.StatusServiceUnavailable)
		return false
	}

	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	buf := new(bytes.Buffer)

	err := json.NewEncoder(buf).Encode(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	_, err = w.Write(buf.Bytes())
	if err != nil {
		log.Printf("monitor: write response: %v", err)
	}
}
