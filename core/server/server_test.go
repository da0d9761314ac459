package server_test

import (
	"bufio"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/messenger/core/metrics"
	"github.com/dmitrymomot/messenger/core/server"
)

const waitTimeout = 2 * time.Second

// echo writes every line back and closes the connection at EOF.
var echo = server.ConnHandlerFunc(func(_ context.Context, conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		if _, err := conn.Write([]byte(line)); err != nil {
			return
		}
	}
})

func start(t *testing.T, ctx context.Context, srv *server.Server, handler server.ConnHandler) <-chan error {
	t.Helper()

	errc := make(chan error, 1)
	go func() { errc <- srv.Start(ctx, handler) }()

	require.Eventually(t, func() bool { return srv.Addr() != nil }, waitTimeout, time.Millisecond)
	t.Cleanup(func() { _ = srv.Stop() })
	return errc
}

func waitErr(t *testing.T, errc <-chan error) error {
	t.Helper()

	select {
	case err := <-errc:
		return err
	case <-time.After(waitTimeout):
		t.Fatal("server did not return")
		return nil
	}
}

func roundTrip(t *testing.T, conn net.Conn, line string) {
	t.Helper()

	require.NoError(t, conn.SetDeadline(time.Now().Add(waitTimeout)))
	_, err := conn.Write([]byte(line + "\n"))
	require.NoError(t, err)

	got, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, line+"\n", got)
}

func writeTestCert(t *testing.T) (certFile, keyFile string, cert *x509.Certificate) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "localhost"},
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err = x509.ParseCertificate(der)
	require.NoError(t, err)

	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	dir := t.TempDir()
	certFile = filepath.Join(dir, "cert.pem")
	keyFile = filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	require.NoError(t, os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600))

	return certFile, keyFile, cert
}

func TestServer(t *testing.T) {
	t.Parallel()

	t.Run("serves connections and stops", func(t *testing.T) {
		t.Parallel()

		srv := server.New("127.0.0.1:0")
		errc := start(t, t.Context(), srv, echo)

		for range 3 {
			conn, err := net.Dial("tcp", srv.Addr().String())
			require.NoError(t, err)
			roundTrip(t, conn, "hello")
			require.NoError(t, conn.Close())
		}

		require.NoError(t, srv.Stop())
		assert.NoError(t, waitErr(t, errc))
		assert.Nil(t, srv.Addr())
	})

	t.Run("rejects nil handler", func(t *testing.T) {
		t.Parallel()

		err := server.New("127.0.0.1:0").Start(t.Context(), nil)
		assert.ErrorIs(t, err, server.ErrNilHandler)
	})

	t.Run("rejects second start", func(t *testing.T) {
		t.Parallel()

		srv := server.New("127.0.0.1:0")
		start(t, t.Context(), srv, echo)

		err := srv.Start(t.Context(), echo)
		assert.ErrorIs(t, err, server.ErrServerAlreadyRunning)
	})

	t.Run("returns bind failure", func(t *testing.T) {
		t.Parallel()

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		defer ln.Close()

		err = server.New(ln.Addr().String()).Start(t.Context(), echo)
		assert.ErrorIs(t, err, server.ErrListen)
	})

	t.Run("context cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(t.Context())
		srv := server.New("127.0.0.1:0")
		errc := start(t, ctx, srv, echo)

		cancel()

		assert.ErrorIs(t, waitErr(t, errc), context.Canceled)
	})

	t.Run("context cancellation cancels connections and allows restart", func(t *testing.T) {
		t.Parallel()

		var started, canceled atomic.Int32
		handler := server.ConnHandlerFunc(func(ctx context.Context, conn net.Conn) {
			defer conn.Close()
			started.Add(1)
			<-ctx.Done()
			canceled.Add(1)
		})

		ctx, cancel := context.WithCancel(t.Context())
		srv := server.New("127.0.0.1:0")
		errc := start(t, ctx, srv, handler)

		conn, err := net.Dial("tcp", srv.Addr().String())
		require.NoError(t, err)
		defer conn.Close()
		require.Eventually(t, func() bool { return started.Load() == 1 }, waitTimeout, time.Millisecond)

		cancel()

		assert.ErrorIs(t, waitErr(t, errc), context.Canceled)
		assert.Equal(t, int32(1), canceled.Load())
		assert.Nil(t, srv.Addr())

		errc = start(t, t.Context(), srv, echo)
		again, err := net.Dial("tcp", srv.Addr().String())
		require.NoError(t, err)
		defer again.Close()
		roundTrip(t, again, "restarted")

		require.NoError(t, srv.Stop())
		assert.NoError(t, waitErr(t, errc))
	})

	t.Run("stop cancels connection contexts", func(t *testing.T) {
		t.Parallel()

		var started, canceled atomic.Int32
		handler := server.ConnHandlerFunc(func(ctx context.Context, conn net.Conn) {
			defer conn.Close()
			started.Add(1)
			<-ctx.Done()
			canceled.Add(1)
		})

		srv := server.New("127.0.0.1:0")
		errc := start(t, t.Context(), srv, handler)

		for range 2 {
			conn, err := net.Dial("tcp", srv.Addr().String())
			require.NoError(t, err)
			defer conn.Close()
		}
		require.Eventually(t, func() bool { return started.Load() == 2 }, waitTimeout, time.Millisecond)

		require.NoError(t, srv.Stop())
		assert.NoError(t, waitErr(t, errc))
		assert.Equal(t, int32(2), canceled.Load())
	})

	t.Run("stop times out on stuck handler", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		defer close(release)
		entered := make(chan struct{})
		handler := server.ConnHandlerFunc(func(_ context.Context, conn net.Conn) {
			defer conn.Close()
			close(entered)
			<-release
		})

		srv := server.New("127.0.0.1:0", server.WithShutdownTimeout(50*time.Millisecond))
		start(t, t.Context(), srv, handler)

		conn, err := net.Dial("tcp", srv.Addr().String())
		require.NoError(t, err)
		defer conn.Close()
		<-entered

		assert.ErrorIs(t, srv.Stop(), server.ErrShutdownTimeout)
	})

	t.Run("recovers handler panic", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		handler := server.ConnHandlerFunc(func(ctx context.Context, conn net.Conn) {
			if calls.Add(1) == 1 {
				panic("boom")
			}
			echo(ctx, conn)
		})

		srv := server.New("127.0.0.1:0")
		start(t, t.Context(), srv, handler)

		first, err := net.Dial("tcp", srv.Addr().String())
		require.NoError(t, err)
		defer first.Close()

		// The panicking handler's connection is closed by the server.
		require.NoError(t, first.SetReadDeadline(time.Now().Add(waitTimeout)))
		_, err = first.Read(make([]byte, 1))
		require.Error(t, err)

		second, err := net.Dial("tcp", srv.Addr().String())
		require.NoError(t, err)
		defer second.Close()
		roundTrip(t, second, "still alive")
	})

	t.Run("stop without start", func(t *testing.T) {
		t.Parallel()

		assert.NoError(t, server.New("127.0.0.1:0").Stop())
	})
}

func TestServerTLS(t *testing.T) {
	t.Parallel()

	certFile, keyFile, cert := writeTestCert(t)
	srv, err := server.NewFromConfig(server.Config{
		Addr:        "127.0.0.1:0",
		TLSCertFile: certFile,
		TLSKeyFile:  keyFile,
	})
	require.NoError(t, err)
	start(t, t.Context(), srv, echo)

	pool := x509.NewCertPool()
	pool.AddCert(cert)
	conn, err := tls.Dial("tcp", srv.Addr().String(), &tls.Config{
		RootCAs:    pool,
		ServerName: "localhost",
		MinVersion: tls.VersionTLS12,
	})
	require.NoError(t, err)
	defer conn.Close()

	roundTrip(t, conn, "secure")
}

func TestServerRun(t *testing.T) {
	t.Parallel()

	t.Run("returns nil on cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(t.Context())
		srv := server.New("127.0.0.1:0")

		errc := make(chan error, 1)
		go func() { errc <- srv.Run(ctx, echo)() }()
		require.Eventually(t, func() bool { return srv.Addr() != nil }, waitTimeout, time.Millisecond)

		cancel()

		assert.NoError(t, waitErr(t, errc))
	})

	t.Run("returns bind failure", func(t *testing.T) {
		t.Parallel()

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		defer ln.Close()

		err = server.New(ln.Addr().String()).Run(t.Context(), echo)()
		assert.ErrorIs(t, err, server.ErrListen)
	})
}

func TestWithMetrics(t *testing.T) {
	t.Parallel()

	m := metrics.New(prometheus.NewRegistry())
	srv := server.New("127.0.0.1:0", server.WithMetrics(m), server.WithLogger(nil))
	start(t, t.Context(), srv, echo)

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	roundTrip(t, conn, "ok")
}
