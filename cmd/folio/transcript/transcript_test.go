package transcriptcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"net"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/folio/pkg/answer"
	"github.com/papercomputeco/folio/pkg/client"
	"github.com/papercomputeco/folio/proxy"
)

var _ = Describe("Transcript Command", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	startServer := func() (string, func()) {
		p, err := proxy.New(proxy.Config{ListenAddr: ":0", Transcript: true}, answer.NewCanned([]string{"I know Go."}), zap.NewNop())
		Expect(err).NotTo(HaveOccurred())

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())

		go func() {
			_ = p.RunWithListener(listener)
		}()

		addr := "http://" + listener.Addr().String()
		cleanup := func() {
			p.Shutdown()
			p.Close()
		}
		return addr, cleanup
	}

	run := func(args ...string) (string, error) {
		var out bytes.Buffer
		cmd := NewTranscriptCmd()
		cmd.SetOut(&out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(args)
		err := cmd.ExecuteContext(ctx)
		return out.String(), err
	}

	It("reports an empty transcript", func() {
		addr, cleanup := startServer()
		defer cleanup()

		out, err := run("--server", addr)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("No exchanges recorded yet.\n"))
	})

	It("prints answered exchanges", func() {
		addr, cleanup := startServer()
		defer cleanup()

		_, err := client.New(addr).Ask(ctx, "What do you know?")
		Expect(err).NotTo(HaveOccurred())

		out, err := run("--server", addr)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("[user] What do you know?\n[assistant] I know Go.\n"))
		Expect(out).To(HaveSuffix("1 exchanges\n"))
	})

	It("prints raw JSON", func() {
		addr, cleanup := startServer()
		defer cleanup()

		_, err := client.New(addr).Ask(ctx, "hello")
		Expect(err).NotTo(HaveOccurred())

		out, err := run("--server", addr, "--json")
		Expect(err).NotTo(HaveOccurred())

		var result transcriptResponse
		Expect(json.Unmarshal([]byte(out), &result)).To(Succeed())
		Expect(result.Count).To(Equal(1))
		Expect(result.Histories[0].Messages).To(HaveLen(2))
		Expect(result.Histories[0].Depth).To(Equal(2))
	})

	It("explains when the proxy keeps no transcript", func() {
		p, err := proxy.New(proxy.Config{ListenAddr: ":0"}, answer.NewCanned(nil), zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		go func() {
			_ = p.RunWithListener(listener)
		}()
		defer p.Shutdown()

		_, err = run("--server", "http://"+listener.Addr().String())
		Expect(err).To(MatchError(ContainSubstring("--transcript")))
	})

	It("fails when the proxy is down", func() {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		addr := "http://" + listener.Addr().String()
		listener.Close()

		_, err = run("--server", addr)
		Expect(err).To(MatchError(ContainSubstring("HTTP request failed")))
	})
})
