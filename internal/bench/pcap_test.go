package bench

import (
	"net"
	"net/netip"
	"os"
	"path/filepath"
	"testing"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/gopacket/gopacket/pcapgo"
	"github.com/stretchr/testify/require"
)

func writeTestPcap(t *testing.T, path string, dsts ...string) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	writer := pcapgo.NewWriter(f)
	require.NoError(t, writer.WriteFileHeader(65536, layers.LinkTypeEthernet))

	for _, dst := range dsts {
		buf := gopacket.NewSerializeBuffer()
		opts := gopacket.SerializeOptions{
			FixLengths:       true,
			ComputeChecksums: true,
		}
		eth := &layers.Ethernet{
			SrcMAC:       net.HardwareAddr{0, 0, 0, 0, 0, 1},
			DstMAC:       net.HardwareAddr{0, 0x11, 0x22, 0x33, 0x44, 0x55},
			EthernetType: layers.EthernetTypeIPv4,
		}
		ip := &layers.IPv4{
			Version:  4,
			IHL:      5,
			TTL:      64,
			Protocol: layers.IPProtocolUDP,
			SrcIP:    net.ParseIP("198.51.100.1"),
			DstIP:    net.ParseIP(dst),
		}
		udp := &layers.UDP{SrcPort: 1234, DstPort: 53}
		require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
		require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, udp))

		data := buf.Bytes()
		require.NoError(t, writer.WritePacket(gopacket.CaptureInfo{
			CaptureLength: len(data),
			Length:        len(data),
		}, data))
	}
}

func TestReadAddrs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.pcap")
	writeTestPcap(t, path, "10.0.1.5", "10.2.3.4", "192.168.1.1")

	addrs, err := ReadAddrs(path)
	require.NoError(t, err)
	require.Equal(t, []netip.Addr{
		netip.MustParseAddr("10.0.1.5"),
		netip.MustParseAddr("10.2.3.4"),
		netip.MustParseAddr("192.168.1.1"),
	}, addrs)
}

func TestReadAddrsMissingFile(t *testing.T) {
	_, err := ReadAddrs(filepath.Join(t.TempDir(), "nope.pcap"))
	require.Error(t, err)
}
