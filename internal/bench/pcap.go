package bench

import (
	"errors"
	"fmt"
	"io"
	"net/netip"
	"os"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/gopacket/gopacket/pcapgo"
)

// ReadAddrs extracts the IPv4 destination address of every packet in a pcap
// file, in capture order. Non-IPv4 packets are skipped.
func ReadAddrs(path string) ([]netip.Addr, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := pcapgo.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read pcap header: %w", err)
	}

	var addrs []netip.Addr
	for {
		data, _, err := r.ReadPacketData()
		if errors.Is(err, io.EOF) {
			return addrs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read packet %d: %w", len(addrs), err)
		}

		pkt := gopacket.NewPacket(data, r.LinkType(), gopacket.Lazy)
		ip, ok := pkt.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
		if !ok {
			continue
		}
		if addr, ok := netip.AddrFromSlice(ip.DstIP.To4()); ok {
			addrs = append(addrs, addr)
		}
	}
}
