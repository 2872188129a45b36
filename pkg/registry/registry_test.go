package registry

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"testing"

	"github.com/BukiOffor/registry/pkg/ccd"
	"github.com/BukiOffor/registry/pkg/ccdrpc/result"
	"github.com/BukiOffor/registry/pkg/rpcclient/unwrap"
	"github.com/BukiOffor/registry/pkg/schema"
	"github.com/BukiOffor/registry/pkg/transaction"
	"github.com/stretchr/testify/require"
)

const (
	testKey       = "c82ce198a0595e621d9ab066b3950b78efbeea4eecfaf246bc3e0238d8d6d799"
	testSignature = "5ac312ac52171a91866e3e9de7bfe7caa24cc9385175f6718b3df00b912bd0e2b300a0e684e1d461b2de2a79d1149f04923b7b338dcfbfb2493b214d9683c70d"
)

type testAct struct {
	err error
	res *result.Invoke
	txh ccd.TransactionHash

	calls    int
	contract ccd.ContractAddress
	method   ccd.ReceiveName
	param    ccd.Parameter
	imd      ccd.ContractInvokeMetadata
	tmd      ccd.ContractTransactionMetadata
	sender   ccd.AccountAddress

	initModule ccd.ModuleReference
	initName   ccd.ContractName
}

func (t *testAct) CallWithMetadata(contract ccd.ContractAddress, method ccd.ReceiveName, param ccd.Parameter, md ccd.ContractInvokeMetadata) (*result.Invoke, error) {
	t.calls++
	t.contract, t.method, t.param, t.imd = contract, method, param, md
	return t.res, t.err
}

func (t *testAct) MakeUpdate(contract ccd.ContractAddress, method ccd.ReceiveName, param ccd.Parameter, md ccd.ContractTransactionMetadata) (*transaction.AccountTransaction, error) {
	t.calls++
	t.contract, t.method, t.param, t.tmd = contract, method, param, md
	if t.err != nil {
		return nil, t.err
	}
	return transaction.New(md.SenderAddress, 1, 100, md.Energy, &transaction.UpdateContract{
		Amount:      md.Amount,
		Address:     contract,
		ReceiveName: method,
		Message:     param,
	})
}

func (t *testAct) SendUpdate(contract ccd.ContractAddress, method ccd.ReceiveName, param ccd.Parameter, md ccd.ContractTransactionMetadata) (ccd.TransactionHash, error) {
	t.calls++
	t.contract, t.method, t.param, t.tmd = contract, method, param, md
	return t.txh, t.err
}

func (t *testAct) Sender() ccd.AccountAddress {
	return t.sender
}

func (t *testAct) SendInit(module ccd.ModuleReference, name ccd.ContractName, param ccd.Parameter, amount ccd.Amount, energy ccd.Energy) (ccd.TransactionHash, error) {
	t.calls++
	t.initModule, t.initName, t.param = module, name, param
	t.tmd = ccd.ContractTransactionMetadata{Amount: amount, Energy: energy}
	return t.txh, t.err
}

type testRPC struct {
	err     error
	info    *result.InstanceInfo
	src     *result.ModuleSource
	atBlock *ccd.BlockHash
	ref     ccd.ModuleReference
}

func (t *testRPC) GetInstanceInfo(addr ccd.ContractAddress) (*result.InstanceInfo, error) {
	return t.info, t.err
}

func (t *testRPC) GetInstanceInfoAtBlock(block ccd.BlockHash, addr ccd.ContractAddress) (*result.InstanceInfo, error) {
	t.atBlock = &block
	return t.info, t.err
}

func (t *testRPC) GetModuleSource(ref ccd.ModuleReference) (*result.ModuleSource, error) {
	t.ref = ref
	return t.src, t.err
}

func testParameter() RegisterParameter {
	return RegisterParameter{
		Signer:    testKey,
		Signature: testSignature,
		Message: Message{
			Tag: "buki.ccd",
			Data: Data{
				PublicKey:       testKey,
				ContractAddress: ccd.NewContractAddress(100, 0),
				Provider:        "AfrixLabs",
			},
			ExpiryTime: ccd.Timestamp(1893553445123),
		},
	}
}

func TestRegisterParameter(t *testing.T) {
	p := testParameter()
	param, err := NewRegisterParameter(p)
	require.NoError(t, err)
	require.Len(t, param, 32+64+(4+8)+32+16+(4+9)+8)
	require.Equal(t, testKey, hex.EncodeToString(param[:32]))
	require.EqualValues(t, 1893553445123, binary.LittleEndian.Uint64(param[len(param)-8:]))

	back, err := DecodeRegisterParameter(param)
	require.NoError(t, err)
	require.Equal(t, p, back)

	msg, err := NewGetParamHashParameter(p.Message)
	require.NoError(t, err)
	require.Equal(t, []byte(param[96:]), []byte(msg))
	m, err := DecodeGetParamHashParameter(msg)
	require.NoError(t, err)
	require.Equal(t, p.Message, m)

	p.Signer = "c82c"
	_, err = NewRegisterParameter(p)
	require.Error(t, err)
	_, err = DecodeRegisterParameter(param[:10])
	require.Error(t, err)
}

func TestKeyAndTagParameters(t *testing.T) {
	param, err := NewGetKeyParameter("buki.ccd")
	require.NoError(t, err)
	require.Equal(t, ccd.Parameter(append([]byte{8, 0, 0, 0}, "buki.ccd"...)), param)

	param, err = NewGetTagParameter(testKey)
	require.NoError(t, err)
	require.Equal(t, testKey, hex.EncodeToString(param))

	_, err = NewGetTagParameter("buki.ccd")
	require.Error(t, err)
}

func TestRegisterParameterExpiryRange(t *testing.T) {
	for _, ts := range []ccd.Timestamp{0, ccd.MaxRFC3339Timestamp, ccd.MaxRFC3339Timestamp + 1, 1 << 63, ^ccd.Timestamp(0)} {
		p := testParameter()
		p.Message.ExpiryTime = ts
		param, err := NewRegisterParameter(p)
		require.NoError(t, err, ts)
		require.EqualValues(t, ts, binary.LittleEndian.Uint64(param[len(param)-8:]))
		back, err := DecodeRegisterParameter(param)
		require.NoError(t, err, ts)
		require.Equal(t, p, back)

		msg, err := NewGetParamHashParameter(p.Message)
		require.NoError(t, err, ts)
		m, err := DecodeGetParamHashParameter(msg)
		require.NoError(t, err, ts)
		require.Equal(t, p.Message, m)
	}

	p := testParameter()
	p.Message.ExpiryTime = ccd.MaxRFC3339Timestamp + 1
	data, err := json.Marshal(RegisterParameterWebWallet(p))
	require.NoError(t, err)
	require.Contains(t, string(data), `"expiry_time":253402300800000`)
	p.Message.ExpiryTime = ccd.MaxRFC3339Timestamp
	data, err = json.Marshal(RegisterParameterWebWallet(p))
	require.NoError(t, err)
	require.Contains(t, string(data), `"expiry_time":"9999-12-31T23:59:59.999Z"`)
}

func TestInvalidUTF8Parameters(t *testing.T) {
	_, err := NewGetKeyParameter("bu\xffki")
	require.ErrorIs(t, err, schema.ErrInvalidUTF8)

	p := testParameter()
	p.Message.Tag = "bu\xffki"
	_, err = NewRegisterParameter(p)
	require.ErrorIs(t, err, schema.ErrInvalidUTF8)
	_, err = NewGetParamHashParameter(p.Message)
	require.ErrorIs(t, err, schema.ErrInvalidUTF8)

	p = testParameter()
	p.Message.Data.Provider = "Afrix\xc3"
	_, err = NewRegisterParameter(p)
	require.ErrorIs(t, err, schema.ErrInvalidUTF8)
	_, err = NewGetParamHashParameter(p.Message)
	require.ErrorIs(t, err, schema.ErrInvalidUTF8)

	param, err := NewGetKeyParameter("bükí.ccd")
	require.NoError(t, err)
	require.Equal(t, ccd.Parameter(append([]byte{10, 0, 0, 0}, "bükí.ccd"...)), param)
}

func TestWebWalletParameter(t *testing.T) {
	data, err := json.Marshal(RegisterParameterWebWallet(testParameter()))
	require.NoError(t, err)

	var v struct {
		Parameters struct {
			Signer  string `json:"signer"`
			Message struct {
				Data struct {
					ContractAddress map[string]uint64 `json:"contract_address"`
				} `json:"data"`
				ExpiryTime string `json:"expiry_time"`
			} `json:"message"`
		} `json:"parameters"`
		Schema struct {
			Type  string `json:"type"`
			Value string `json:"value"`
		} `json:"schema"`
	}
	require.NoError(t, json.Unmarshal(data, &v))
	require.Equal(t, testKey, v.Parameters.Signer)
	require.Equal(t, map[string]uint64{"index": 100, "subindex": 0}, v.Parameters.Message.Data.ContractAddress)
	require.Equal(t, "2030-01-02T03:04:05.123Z", v.Parameters.Message.ExpiryTime)
	require.Equal(t, "TypeSchema", v.Schema.Type)
	require.Equal(t, registerParameterSchema, v.Schema.Value)

	data, err = json.Marshal(GetKeyParameterWebWallet("buki.ccd"))
	require.NoError(t, err)
	require.JSONEq(t, `{"parameters":"buki.ccd","schema":{"type":"TypeSchema","value":"FgI="}}`, string(data))

	require.Equal(t, testKey, GetTagParameterWebWallet(testKey).Parameters)
	require.Equal(t, "buki.ccd", GetParamHashParameterWebWallet(testParameter().Message).Parameters.(messageSchemaJSON).Tag)

	ww := GetKeyParameterWebWallet("buki.ccd")
	ww.Schema.Value[0] = 0xff
	require.Equal(t, getKeyParameterSchemaBytes, GetKeyParameterWebWallet("buki.ccd").Schema.Value)
	require.Equal(t, []byte{0x16, 0x02}, getKeyParameterSchemaBytes)
}

func TestDryRuns(t *testing.T) {
	ta := &testAct{res: &result.Invoke{Tag: result.InvokeSuccess, UsedEnergy: 1000, ReturnValue: []byte{}}}
	addr := ccd.NewContractAddress(10289, 0)
	r := NewReader(ta, addr)
	require.Equal(t, addr, r.Address())

	p := testParameter()
	invoker := ccd.AccountAsAddress(ccd.AccountAddress{1})
	md := ccd.ContractInvokeMetadata{Invoker: invoker}

	cases := map[string]struct {
		call   func() (*result.Invoke, error)
		method ccd.ReceiveName
		param  func() (ccd.Parameter, error)
	}{
		"get_param_hash": {
			call:   func() (*result.Invoke, error) { return r.DryRunGetParamHash(p.Message, md) },
			method: "registry.get_param_hash",
			param:  func() (ccd.Parameter, error) { return NewGetParamHashParameter(p.Message) },
		},
		"register": {
			call:   func() (*result.Invoke, error) { return r.DryRunRegister(p, md) },
			method: "registry.register",
			param:  func() (ccd.Parameter, error) { return NewRegisterParameter(p) },
		},
		"get_key": {
			call:   func() (*result.Invoke, error) { return r.DryRunGetKey("buki.ccd", md) },
			method: "registry.get_key",
			param:  func() (ccd.Parameter, error) { return NewGetKeyParameter("buki.ccd") },
		},
		"get_tag": {
			call:   func() (*result.Invoke, error) { return r.DryRunGetTag(testKey, md) },
			method: "registry.get_tag",
			param:  func() (ccd.Parameter, error) { return NewGetTagParameter(testKey) },
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			res, err := tc.call()
			require.NoError(t, err)
			require.Equal(t, ta.res, res)
			require.Equal(t, addr, ta.contract)
			require.Equal(t, tc.method, ta.method)
			require.Equal(t, md, ta.imd)
			expected, err := tc.param()
			require.NoError(t, err)
			require.Equal(t, expected, ta.param)
		})
	}

	ta.calls = 0
	_, err := r.DryRunGetTag("zz", md)
	require.Error(t, err)
	require.Equal(t, 0, ta.calls)

	ta.err = errors.New("net")
	_, err = r.DryRunGetKey("buki", md)
	require.ErrorIs(t, err, ta.err)
}

func TestContractTransactions(t *testing.T) {
	ta := &testAct{txh: ccd.TransactionHash{1, 2, 3}}
	addr := ccd.NewContractAddress(10289, 0)
	c := New(ta, addr)
	md := ccd.ContractTransactionMetadata{SenderAddress: ccd.AccountAddress{7}, Energy: 1200}
	p := testParameter()

	h, err := c.Register(md, p)
	require.NoError(t, err)
	require.Equal(t, ta.txh, h)
	require.Equal(t, ccd.ReceiveName("registry.register"), ta.method)
	require.Equal(t, md, ta.tmd)
	back, err := DecodeRegisterParameter(ta.param)
	require.NoError(t, err)
	require.Equal(t, p, back)

	tx, err := c.RegisterTransaction(md, p)
	require.NoError(t, err)
	require.Equal(t, ta.param, tx.Payload.(*transaction.UpdateContract).Message)

	_, err = c.SendGetParamHash(md, p.Message)
	require.NoError(t, err)
	require.Equal(t, ccd.ReceiveName("registry.get_param_hash"), ta.method)
	_, err = c.GetParamHashTransaction(md, p.Message)
	require.NoError(t, err)

	_, err = c.SendGetKey(md, "buki.ccd")
	require.NoError(t, err)
	require.Equal(t, ccd.ReceiveName("registry.get_key"), ta.method)
	_, err = c.GetKeyTransaction(md, "buki.ccd")
	require.NoError(t, err)

	_, err = c.SendGetTag(md, testKey)
	require.NoError(t, err)
	require.Equal(t, ccd.ReceiveName("registry.get_tag"), ta.method)
	tx, err = c.GetTagTransaction(md, testKey)
	require.NoError(t, err)
	require.Equal(t, addr, tx.Payload.(*transaction.UpdateContract).Address)

	ta.calls = 0
	p.Signature = "00"
	_, err = c.Register(md, p)
	require.Error(t, err)
	_, err = c.RegisterTransaction(md, p)
	require.Error(t, err)
	require.Equal(t, 0, ta.calls)
}

func TestCheckOnChain(t *testing.T) {
	addr := ccd.NewContractAddress(10289, 0)
	good := &result.InstanceInfo{Name: "init_registry", SourceModule: ModuleReference}
	rpc := &testRPC{info: good}

	require.NoError(t, CheckOnChain(rpc, addr, nil))
	require.Nil(t, rpc.atBlock)

	block := ccd.BlockHash{5}
	c, err := NewChecked(rpc, &testAct{}, addr, &block)
	require.NoError(t, err)
	require.Equal(t, addr, c.Address())
	require.Equal(t, block, *rpc.atBlock)

	rpc.info = &result.InstanceInfo{Name: "init_registry", SourceModule: ccd.ModuleReference{1}}
	require.ErrorIs(t, CheckOnChain(rpc, addr, nil), ErrInstanceMismatch)
	rpc.info = &result.InstanceInfo{Name: "init_other", SourceModule: ModuleReference}
	require.ErrorIs(t, CheckOnChain(rpc, addr, nil), ErrInstanceMismatch)
	rpc.info = &result.InstanceInfo{Name: "registry", SourceModule: ModuleReference}
	require.ErrorIs(t, CheckOnChain(rpc, addr, nil), ErrInstanceMismatch)

	rpc.err = errors.New("not found")
	_, err = NewChecked(rpc, &testAct{}, addr, nil)
	require.ErrorIs(t, err, rpc.err)
}

func rejected(rv []byte) *result.Invoke {
	return &result.Invoke{
		Tag:         result.InvokeFailure,
		ReturnValue: rv,
		Reason:      &result.RejectReason{Tag: result.RejectedReceive, RejectReason: -8},
	}
}

func TestParseErrorMessage(t *testing.T) {
	for i := 0; i < len(errorKindNames); i++ {
		m, err := ParseErrorMessage(rejected([]byte{byte(i)}))
		require.NoError(t, err)
		require.Equal(t, ErrorKind(i), m.Kind)
		require.EqualValues(t, -1-i, m.Kind.Code())
	}

	m, err := ParseErrorMessage(rejected([]byte{7}))
	require.NoError(t, err)
	require.Equal(t, TagAlreadyExists, m.Kind)
	require.Equal(t, "registry: TagAlreadyExists", m.Error())

	for _, r := range []*result.Invoke{
		nil,
		{Tag: result.InvokeSuccess, ReturnValue: []byte{}},
		{Tag: result.InvokeFailure, Reason: &result.RejectReason{Tag: "OutOfEnergy"}},
	} {
		m, err := ParseErrorMessage(r)
		require.NoError(t, err)
		require.Nil(t, m)
	}

	_, err = ParseErrorMessage(rejected(nil))
	require.ErrorIs(t, err, unwrap.ErrMissingReturnValue)
	_, err = ParseErrorMessage(rejected([]byte{11}))
	require.ErrorIs(t, err, ErrUnexpectedVariant)
	_, err = ParseErrorMessage(rejected([]byte{1, 2}))
	require.ErrorIs(t, err, ErrUnexpectedVariant)
	_, err = ParseErrorMessage(rejected([]byte{}))
	require.ErrorIs(t, err, ErrUnexpectedVariant)
}

func TestErrorKindJSON(t *testing.T) {
	data, err := json.Marshal(&ErrorMessage{Kind: PublicKeyAlreadyExists})
	require.NoError(t, err)
	require.Equal(t, `{"type":"PublicKeyAlreadyExists"}`, string(data))

	var m ErrorMessage
	require.NoError(t, json.Unmarshal([]byte(`{"type":"Expired"}`), &m))
	require.Equal(t, Expired, m.Kind)
	require.ErrorIs(t, json.Unmarshal([]byte(`{"type":"Nope"}`), &m), ErrUnexpectedVariant)
	require.Error(t, json.Unmarshal([]byte(`{"type":7}`), &m))

	require.Equal(t, "ErrorKind(42)", ErrorKind(42).String())
	_, err = json.Marshal(ErrorKind(42))
	require.Error(t, err)
}

func TestParamHash(t *testing.T) {
	hash := bytes.Repeat([]byte{0xab}, 32)
	ta := &testAct{res: &result.Invoke{Tag: result.InvokeSuccess, ReturnValue: hash}}
	r := NewReader(ta, ccd.NewContractAddress(1, 0))

	h, err := r.GetParamHash(testParameter().Message)
	require.NoError(t, err)
	require.Equal(t, hash, h[:])
	require.Equal(t, ccd.ReceiveName("registry.get_param_hash"), ta.method)

	_, err = ParseReturnValueGetParamHash(&result.Invoke{Tag: result.InvokeSuccess}, nil)
	require.ErrorIs(t, err, unwrap.ErrMissingReturnValue)

	var failed *unwrap.FailedError
	_, err = ParseReturnValueGetParamHash(rejected([]byte{1}), nil)
	require.ErrorAs(t, err, &failed)

	_, err = ParseReturnValueGetParamHash(&result.Invoke{Tag: result.InvokeSuccess, ReturnValue: hash[:31]}, nil)
	require.Error(t, err)

	ta.err = errors.New("net")
	_, err = r.GetParamHash(testParameter().Message)
	require.ErrorIs(t, err, ta.err)
}

func TestMessageHash(t *testing.T) {
	addr := ccd.NewContractAddress(10289, 3)
	m := testParameter().Message

	h, err := MessageHash(m, addr, TestnetGenesisHash)
	require.NoError(t, err)

	msg, err := NewGetParamHashParameter(m)
	require.NoError(t, err)
	buf := append([]byte{}, TestnetGenesisHash[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, 10289)
	buf = binary.LittleEndian.AppendUint64(buf, 3)
	buf = append(buf, msg...)
	require.Equal(t, sha256.Sum256(buf), h)

	other, err := MessageHash(m, ccd.NewContractAddress(10289, 0), TestnetGenesisHash)
	require.NoError(t, err)
	require.NotEqual(t, h, other)
}

func TestSignRegisterMessage(t *testing.T) {
	_, key, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	addr := ccd.NewContractAddress(10289, 0)
	m := testParameter().Message
	m.Data.PublicKey = ""

	p, err := SignRegisterMessage(key, m, addr, TestnetGenesisHash)
	require.NoError(t, err)
	require.Equal(t, p.Signer, p.Message.Data.PublicKey)
	require.NoError(t, VerifyRegisterParameter(p, addr, TestnetGenesisHash))

	_, err = NewRegisterParameter(p)
	require.NoError(t, err)

	require.Error(t, VerifyRegisterParameter(p, ccd.NewContractAddress(1, 0), TestnetGenesisHash))
	tampered := p
	tampered.Message.Tag = "other.ccd"
	require.Error(t, VerifyRegisterParameter(tampered, addr, TestnetGenesisHash))
	tampered = p
	tampered.Signer = testKey
	require.ErrorIs(t, VerifyRegisterParameter(tampered, addr, TestnetGenesisHash), ErrSignerMismatch)

	_, err = SignRegisterMessage(key, testParameter().Message, addr, TestnetGenesisHash)
	require.ErrorIs(t, err, ErrSignerMismatch)
}

func TestNormalizeTag(t *testing.T) {
	require.Equal(t, "buki.ccd", NormalizeTag("buki"))
	require.Equal(t, "buki.ccd", NormalizeTag("buki.ccd"))
	require.Equal(t, ".ccd", NormalizeTag(""))
}

func TestModule(t *testing.T) {
	rpc := &testRPC{src: &result.ModuleSource{Version: 1, Source: []byte{0, 'a', 's', 'm'}}}
	ta := &testAct{sender: ccd.AccountAddress{9}, txh: ccd.TransactionHash{4}}

	m, err := NewModule(rpc, ta)
	require.NoError(t, err)
	require.Equal(t, ModuleReference, rpc.ref)
	src, err := m.GetModuleSource()
	require.NoError(t, err)
	require.Equal(t, 1, src.Version)

	h, err := m.InstantiateRegistry(ccd.ContractTransactionMetadata{Energy: 5000}, nil)
	require.NoError(t, err)
	require.Equal(t, ta.txh, h)
	require.Equal(t, ModuleReference, ta.initModule)
	require.Equal(t, ContractName, ta.initName)
	require.EqualValues(t, 5000, ta.tmd.Energy)

	_, err = m.InstantiateRegistry(ccd.ContractTransactionMetadata{SenderAddress: ccd.AccountAddress{1}}, nil)
	require.Error(t, err)

	_, err = NewModuleUnchecked(rpc, nil).InstantiateRegistry(ccd.ContractTransactionMetadata{}, nil)
	require.ErrorIs(t, err, ErrNoActor)

	rpc.err = errors.New("no module")
	_, err = NewModule(rpc, ta)
	require.ErrorIs(t, err, rpc.err)
}
