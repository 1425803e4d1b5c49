// ABOUTME: mDNS discovery for the drum export service
// ABOUTME: Advertises the service and browses for other instances on the LAN
package discovery

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/hashicorp/mdns"
)

// ServiceType is the DNS-SD type the export service registers under
const ServiceType = "_op1drum._tcp"

// Config holds discovery configuration
type Config struct {
	ServiceName string
	Port        int
	Version     string
}

// Manager handles mDNS operations
type Manager struct {
	config  Config
	ctx     context.Context
	cancel  context.CancelFunc
	servers chan *ServerInfo
}

// ServerInfo describes a discovered export service
type ServerInfo struct {
	Name string
	Host string
	Port int
	Info []string
}

// URL returns the base URL of the service
func (s *ServerInfo) URL() string {
	return fmt.Sprintf("http://%s", net.JoinHostPort(s.Host, fmt.Sprint(s.Port)))
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config:  config,
		ctx:     ctx,
		cancel:  cancel,
		servers: make(chan *ServerInfo, 10),
	}
}

// txtRecords returns the TXT records published with the service
func (m *Manager) txtRecords() []string {
	txt := []string{"path=/api"}
	if m.config.Version != "" {
		txt = append(txt, "version="+m.config.Version)
	}
	return txt
}

// Advertise advertises the export service via mDNS until Stop is called
func (m *Manager) Advertise() error {
	ips, err := getLocalIPs()
	if err != nil {
		return fmt.Errorf("failed to get local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(
		m.config.ServiceName,
		ServiceType,
		"",
		"",
		m.config.Port,
		ips,
		m.txtRecords(),
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}

	log.Printf("Advertising mDNS service: %s on port %d (type: %s)", m.config.ServiceName, m.config.Port, ServiceType)

	go func() {
		<-m.ctx.Done()
		server.Shutdown()
	}()

	return nil
}

// Browse searches for export services until Stop is called
func (m *Manager) Browse() error {
	go m.browseLoop()
	return nil
}

// browseLoop continuously browses for services
func (m *Manager) browseLoop() {
	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		if err := m.query(3*time.Second, func(s *ServerInfo) bool {
			select {
			case m.servers <- s:
				return true
			case <-m.ctx.Done():
				return false
			}
		}); err != nil {
			log.Printf("mDNS query failed: %v", err)
			select {
			case <-time.After(time.Second):
			case <-m.ctx.Done():
				return
			}
		}
	}
}

// Lookup runs a single query and returns every service that answered
func (m *Manager) Lookup(timeout time.Duration) ([]*ServerInfo, error) {
	var found []*ServerInfo
	err := m.query(timeout, func(s *ServerInfo) bool {
		found = append(found, s)
		return true
	})
	return found, err
}

func (m *Manager) query(timeout time.Duration, emit func(*ServerInfo) bool) error {
	entries := make(chan *mdns.ServiceEntry, 10)
	done := make(chan struct{})

	go func() {
		defer close(done)
		keep := true
		for entry := range entries {
			server := entryToServer(entry)
			if server == nil || !keep {
				continue
			}
			log.Printf("Discovered service: %s at %s:%d", server.Name, server.Host, server.Port)
			keep = emit(server)
		}
	}()

	params := &mdns.QueryParam{
		Service:     ServiceType,
		Domain:      "local",
		Timeout:     timeout,
		Entries:     entries,
		DisableIPv6: true,
	}

	err := mdns.Query(params)
	close(entries)
	<-done
	return err
}

// entryToServer converts an mDNS answer, skipping entries without an IPv4 address
func entryToServer(entry *mdns.ServiceEntry) *ServerInfo {
	if entry == nil || entry.AddrV4 == nil {
		return nil
	}
	return &ServerInfo{
		Name: entry.Name,
		Host: entry.AddrV4.String(),
		Port: entry.Port,
		Info: entry.InfoFields,
	}
}

// Servers returns the channel of discovered services
func (m *Manager) Servers() <-chan *ServerInfo {
	return m.servers
}

// Stop stops the discovery manager
func (m *Manager) Stop() {
	m.cancel()
}

// getLocalIPs returns local IP addresses
func getLocalIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					ips = append(ips, ipnet.IP)
				}
			}
		}
	}

	return ips, nil
}
