package registry

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/BukiOffor/registry/pkg/ccd"
	"github.com/BukiOffor/registry/pkg/ccdrpc"
	"github.com/BukiOffor/registry/pkg/ccdrpc/result"
	"github.com/BukiOffor/registry/pkg/config"
	"github.com/BukiOffor/registry/pkg/registrar"
	"github.com/BukiOffor/registry/pkg/registry"
	"github.com/BukiOffor/registry/pkg/wallet"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

const (
	accountKey = "8c9b4b5e0b0a8e6f0a17f83a3d9fd2b0a1d14b2ba6a1d7dd9ae3fbff4a3c2c11"
	tagKey     = "1b1b1b1b1b1b1b1b1b1b1b1b1b1b1b1b1b1b1b1b1b1b1b1b1b1b1b1b1b1b1b1b"
	testExpiry = "2030-01-02T15:04:05Z"
)

var (
	sender = ccd.AccountAddress{0x42}
	txHash = ccd.TransactionHash{0xaa, 0xbb}
)

// rpcServer answers JSON-RPC requests with the results set for their
// methods, unknown methods get an error.
type rpcServer struct {
	lock     sync.Mutex
	requests []ccdrpc.Request
	results  map[string]any
}

func (s *rpcServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req ccdrpc.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.requests = append(s.requests, req)
	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	if res, ok := s.results[req.Method]; ok {
		resp["result"] = res
	} else {
		resp["error"] = ccdrpc.NewError(ccdrpc.MethodNotFoundCode, "Method not found", "")
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *rpcServer) calls(method string) []ccdrpc.Request {
	s.lock.Lock()
	defer s.lock.Unlock()
	var res []ccdrpc.Request
	for _, r := range s.requests {
		if r.Method == method {
			res = append(res, r)
		}
	}
	return res
}

func (s *rpcServer) invokeRequest(t *testing.T, i int) ccdrpc.InvokeInstanceRequest {
	calls := s.calls(ccdrpc.InvokeInstanceMethod)
	require.Greater(t, len(calls), i)
	b, err := json.Marshal(calls[i].Params[0])
	require.NoError(t, err)
	var req ccdrpc.InvokeInstanceRequest
	require.NoError(t, json.Unmarshal(b, &req))
	return req
}

type executor struct {
	srv  *rpcServer
	url  string
	Out  *bytes.Buffer
	conf string
}

func newExecutor(t *testing.T, results map[string]any) *executor {
	srv := &rpcServer{results: results}
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	conf := filepath.Join(t.TempDir(), "registry.yml")
	require.NoError(t, os.WriteFile(conf, []byte(`
ApplicationConfiguration:
  LogLevel: error
Wallet:
  Address: `+sender.String()+`
  Key: `+accountKey+`
`), 0644))
	return &executor{srv: srv, url: ts.URL, Out: new(bytes.Buffer), conf: conf}
}

func setExitFunc() <-chan int {
	ch := make(chan int, 1)
	cli.OsExiter = func(code int) {
		select {
		case ch <- code:
		default:
		}
	}
	return ch
}

func (e *executor) run(args ...string) error {
	e.Out.Reset()
	app := cli.NewApp()
	app.Writer = e.Out
	app.ErrWriter = io.Discard
	app.Commands = NewCommands()
	full := append([]string{"registry-cli", "registry"}, args[0], "--config-file", e.conf, "-r", e.url)
	return app.Run(append(full, args[1:]...))
}

// Run runs command and checks that there were no errors.
func (e *executor) Run(t *testing.T, args ...string) {
	ch := setExitFunc()
	require.NoError(t, e.run(args...))
	select {
	case c := <-ch:
		require.Failf(t, "unexpected exit", "code %d", c)
	default:
	}
}

// RunWithError runs command and checks that is exits with error.
func (e *executor) RunWithError(t *testing.T, args ...string) {
	ch := setExitFunc()
	require.Error(t, e.run(args...))
	select {
	case c := <-ch:
		require.Equal(t, 1, c)
	default:
		require.Fail(t, "no exit was called")
	}
}

func messageArgs(tag string) []string {
	return []string{"--tag", tag, "--data-contract", "100,0", "--provider", "AfrixLabs", "--expiry", testExpiry}
}

func testMessage(t *testing.T, tag string) registry.Message {
	key, err := wallet.PrivateKeyFromHex(tagKey)
	require.NoError(t, err)
	expiry, err := ccd.TimestampFromSchemaValue(testExpiry)
	require.NoError(t, err)
	return registry.Message{
		Tag: tag,
		Data: registry.Data{
			PublicKey:       hex.EncodeToString(key.Public().(ed25519.PublicKey)),
			ContractAddress: ccd.NewContractAddress(100, 0),
			Provider:        "AfrixLabs",
		},
		ExpiryTime: expiry,
	}
}

func TestCheck(t *testing.T) {
	info := &result.InstanceInfo{
		Version:      1,
		Owner:        sender,
		Name:         "init_registry",
		SourceModule: registry.ModuleReference,
		Methods:      []ccd.ReceiveName{"registry.register"},
	}
	e := newExecutor(t, map[string]any{
		ccdrpc.GetModuleSourceMethod: &result.ModuleSource{Version: 1, Source: []byte{0, 'a', 's', 'm'}},
		ccdrpc.GetInstanceInfoMethod: info,
	})
	e.Run(t, "check")
	require.Contains(t, e.Out.String(), "is a registry instance")
	calls := e.srv.calls(ccdrpc.GetInstanceInfoMethod)
	require.Len(t, calls, 1)
	require.Len(t, calls[0].Params, 1)

	e.Run(t, "check", "--historic", config.DefaultGenesisHash)
	calls = e.srv.calls(ccdrpc.GetInstanceInfoMethod)
	require.Len(t, calls, 2)
	require.Equal(t, config.DefaultGenesisHash, calls[1].Params[1])

	e.RunWithError(t, "check", "--historic", "100500")
	e.RunWithError(t, "check", "something")

	info.Name = "init_other"
	e.RunWithError(t, "check")
}

func TestParamHash(t *testing.T) {
	m := testMessage(t, "buki")
	expected, err := registry.MessageHash(m, ccd.NewContractAddress(config.DefaultContractIndex, 0), registry.TestnetGenesisHash)
	require.NoError(t, err)

	e := newExecutor(t, map[string]any{})
	e.Run(t, append([]string{"param-hash"}, append(messageArgs("buki"), "--public-key", m.Data.PublicKey, "--local")...)...)
	require.Equal(t, hex.EncodeToString(expected[:])+"\n", e.Out.String())
	require.Empty(t, e.srv.calls(ccdrpc.InvokeInstanceMethod))

	onChain := bytes.Repeat([]byte{7}, 32)
	e.srv.results[ccdrpc.InvokeInstanceMethod] = &result.Invoke{Tag: result.InvokeSuccess, UsedEnergy: 800, ReturnValue: onChain}
	e.Run(t, append([]string{"param-hash"}, append(messageArgs("buki"), "--public-key", m.Data.PublicKey)...)...)
	require.Equal(t, hex.EncodeToString(onChain)+"\n", e.Out.String())

	req := e.srv.invokeRequest(t, 0)
	require.Equal(t, ccd.ReceiveName("registry.get_param_hash"), req.Method)
	param, err := registry.NewGetParamHashParameter(m)
	require.NoError(t, err)
	require.Equal(t, param, req.Parameter)

	e.RunWithError(t, "param-hash", "--local", "--data-contract", "100")
	e.RunWithError(t, "param-hash", "--local", "--tag", "buki")
	e.RunWithError(t, append([]string{"param-hash"}, append(messageArgs("buki"), "--expiry", "someday", "--local")...)...)
}

func TestRegister(t *testing.T) {
	e := newExecutor(t, map[string]any{
		ccdrpc.InvokeInstanceMethod:               &result.Invoke{Tag: result.InvokeSuccess, UsedEnergy: 1234, ReturnValue: []byte{}},
		ccdrpc.GetNextAccountSequenceNumberMethod: &result.NextSequenceNumber{Nonce: 5, AllFinal: true},
		ccdrpc.SendAccountTransactionMethod:       &result.SendTransaction{Hash: txHash},
	})
	e.Run(t, append([]string{"register"}, append(messageArgs("buki"), "--signing-key", tagKey)...)...)

	var out registrar.Outcome
	require.NoError(t, json.Unmarshal(e.Out.Bytes(), &out))
	require.True(t, out.Status)
	require.Equal(t, txHash, *out.TxHash)
	require.EqualValues(t, 1234+config.DefaultEnergyMargin, out.Energy)

	req := e.srv.invokeRequest(t, 0)
	require.Equal(t, ccd.ReceiveName("registry.register"), req.Method)
	require.Equal(t, ccd.AccountAsAddress(sender), req.Invoker)
	p, err := registry.DecodeRegisterParameter(req.Parameter)
	require.NoError(t, err)
	require.Equal(t, testMessage(t, "buki"), p.Message)
	require.NoError(t, registry.VerifyRegisterParameter(p, ccd.NewContractAddress(config.DefaultContractIndex, 0), registry.TestnetGenesisHash))
	require.Len(t, e.srv.calls(ccdrpc.SendAccountTransactionMethod), 1)

	t.Run("pre-signed", func(t *testing.T) {
		e.Run(t, append([]string{"register"}, append(messageArgs("buki"), "--signer", p.Signer, "--signature", p.Signature)...)...)
		req := e.srv.invokeRequest(t, 1)
		p2, err := registry.DecodeRegisterParameter(req.Parameter)
		require.NoError(t, err)
		require.Equal(t, p, p2)

		e.RunWithError(t, append([]string{"register"}, append(messageArgs("buki"), "--signature", p.Signature)...)...)
	})

	t.Run("rejected", func(t *testing.T) {
		e.srv.results[ccdrpc.InvokeInstanceMethod] = &result.Invoke{
			Tag:         result.InvokeFailure,
			UsedEnergy:  500,
			ReturnValue: []byte{byte(registry.TagAlreadyExists)},
			Reason:      &result.RejectReason{Tag: result.RejectedReceive, RejectReason: registry.TagAlreadyExists.Code()},
		}
		sent := len(e.srv.calls(ccdrpc.SendAccountTransactionMethod))
		e.RunWithError(t, append([]string{"register"}, append(messageArgs("buki"), "--signing-key", tagKey)...)...)

		var out registrar.Outcome
		require.NoError(t, json.Unmarshal(e.Out.Bytes(), &out))
		require.False(t, out.Status)
		require.Equal(t, `"TagAlreadyExists"`, out.Message)
		require.Len(t, e.srv.calls(ccdrpc.SendAccountTransactionMethod), sent)
	})

	t.Run("bad signing key", func(t *testing.T) {
		e.RunWithError(t, append([]string{"register"}, append(messageArgs("buki"), "--signing-key", "0102")...)...)
	})
}

func TestLookups(t *testing.T) {
	e := newExecutor(t, map[string]any{
		ccdrpc.InvokeInstanceMethod: &result.Invoke{
			Tag:         result.InvokeFailure,
			UsedEnergy:  300,
			ReturnValue: []byte{byte(registry.TagDoesNotExist)},
			Reason:      &result.RejectReason{Tag: result.RejectedReceive, RejectReason: registry.TagDoesNotExist.Code()},
		},
	})
	e.Run(t, "get-key", "buki.ccd")
	var out struct {
		Result *result.Invoke `json:"result"`
		Error  string         `json:"error"`
	}
	require.NoError(t, json.Unmarshal(e.Out.Bytes(), &out))
	require.Equal(t, result.InvokeFailure, out.Result.Tag)
	require.Equal(t, "TagDoesNotExist", out.Error)

	req := e.srv.invokeRequest(t, 0)
	require.Equal(t, ccd.ReceiveName("registry.get_key"), req.Method)
	require.Equal(t, ccd.Parameter(append([]byte{8, 0, 0, 0}, "buki.ccd"...)), req.Parameter)
	require.Nil(t, req.Invoker)

	record := []byte{1, 2, 3}
	e.srv.results[ccdrpc.InvokeInstanceMethod] = &result.Invoke{Tag: result.InvokeSuccess, ReturnValue: record}
	m := testMessage(t, "buki")
	e.Run(t, "get-tag", strings.ToUpper(m.Data.PublicKey))
	out.Error = ""
	require.NoError(t, json.Unmarshal(e.Out.Bytes(), &out))
	require.Equal(t, record, out.Result.ReturnValue)
	require.Empty(t, out.Error)
	req = e.srv.invokeRequest(t, 1)
	require.Equal(t, ccd.ReceiveName("registry.get_tag"), req.Method)
	require.Equal(t, m.Data.PublicKey, hex.EncodeToString(req.Parameter))

	e.Run(t, "get-key", "--historic", config.DefaultGenesisHash, "buki.ccd")
	calls := e.srv.calls(ccdrpc.InvokeInstanceMethod)
	require.Len(t, calls[2].Params, 2)

	e.RunWithError(t, "get-key")
	e.RunWithError(t, "get-tag", "a", "b")
	e.RunWithError(t, "get-tag", "nothex")
}

func TestInstantiate(t *testing.T) {
	e := newExecutor(t, map[string]any{
		ccdrpc.GetModuleSourceMethod:              &result.ModuleSource{Version: 1, Source: []byte{0, 'a', 's', 'm'}},
		ccdrpc.GetNextAccountSequenceNumberMethod: &result.NextSequenceNumber{Nonce: 1, AllFinal: true},
		ccdrpc.SendAccountTransactionMethod:       &result.SendTransaction{Hash: txHash},
	})
	e.Run(t, "instantiate", "--energy", "3000")
	require.Equal(t, txHash.String()+"\n", e.Out.String())
	require.Len(t, e.srv.calls(ccdrpc.SendAccountTransactionMethod), 1)

	delete(e.srv.results, ccdrpc.GetModuleSourceMethod)
	e.RunWithError(t, "instantiate")
}

func TestWalletParam(t *testing.T) {
	e := newExecutor(t, nil)

	var out struct {
		Parameters json.RawMessage          `json:"parameters"`
		Schema     registry.WebWalletSchema `json:"schema"`
	}
	e.Run(t, "wallet-param", "--tag", "buki.ccd", "get_key")
	require.NoError(t, json.Unmarshal(e.Out.Bytes(), &out))
	require.JSONEq(t, `"buki.ccd"`, string(out.Parameters))
	require.Equal(t, "TypeSchema", out.Schema.Type)
	require.NotEmpty(t, out.Schema.Value)

	m := testMessage(t, "buki")
	e.Run(t, "wallet-param", "--public-key", m.Data.PublicKey, "get_tag")
	require.NoError(t, json.Unmarshal(e.Out.Bytes(), &out))
	require.JSONEq(t, `"`+m.Data.PublicKey+`"`, string(out.Parameters))

	e.Run(t, append([]string{"wallet-param"}, append(messageArgs("buki"), "--signing-key", tagKey, "register")...)...)
	var reg struct {
		Parameters struct {
			Signer  string `json:"signer"`
			Message struct {
				Tag        string `json:"tag"`
				ExpiryTime string `json:"expiry_time"`
			} `json:"message"`
		} `json:"parameters"`
	}
	require.NoError(t, json.Unmarshal(e.Out.Bytes(), &reg))
	require.Equal(t, m.Data.PublicKey, reg.Parameters.Signer)
	require.Equal(t, "buki", reg.Parameters.Message.Tag)
	expiry, ok := m.ExpiryTime.RFC3339()
	require.True(t, ok)
	require.Equal(t, expiry, reg.Parameters.Message.ExpiryTime)

	e.Run(t, append([]string{"wallet-param"}, append(messageArgs("buki"), "get_param_hash")...)...)
	require.Contains(t, e.Out.String(), `"provider": "AfrixLabs"`)

	e.RunWithError(t, "wallet-param", "get_key")
	e.RunWithError(t, "wallet-param", "get_tag")
	e.RunWithError(t, "wallet-param", "--tag", "buki", "transfer")
	e.RunWithError(t, "wallet-param")
}

func TestMonitor(t *testing.T) {
	e := newExecutor(t, map[string]any{
		ccdrpc.InvokeInstanceMethod: &result.Invoke{Tag: result.InvokeSuccess, ReturnValue: []byte{1}},
	})
	e.Run(t, "monitor", "--once", "monitored")
	require.Equal(t, float64(1), testutil.ToFloat64(tagRegistered.WithLabelValues("monitored")))
	req := e.srv.invokeRequest(t, 0)
	require.Equal(t, ccd.Parameter(append([]byte{13, 0, 0, 0}, "monitored.ccd"...)), req.Parameter)

	e.srv.results[ccdrpc.InvokeInstanceMethod] = &result.Invoke{
		Tag:         result.InvokeFailure,
		ReturnValue: []byte{byte(registry.TagDoesNotExist)},
		Reason:      &result.RejectReason{Tag: result.RejectedReceive, RejectReason: registry.TagDoesNotExist.Code()},
	}
	e.Run(t, "monitor", "--once", "monitored")
	require.Equal(t, float64(0), testutil.ToFloat64(tagRegistered.WithLabelValues("monitored")))

	errs := testutil.ToFloat64(pollErrors)
	delete(e.srv.results, ccdrpc.InvokeInstanceMethod)
	e.Run(t, "monitor", "--once", "monitored")
	require.Equal(t, errs+1, testutil.ToFloat64(pollErrors))

	e.RunWithError(t, "monitor", "--once")
	e.RunWithError(t, "monitor", "--once", "--interval", "0s", "monitored")
}
