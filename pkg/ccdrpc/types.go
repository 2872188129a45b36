/*
Package ccdrpc contains a set of types used for JSON-RPC communication with
Concordium node proxies. It defines basic request/response types, errors and
the parameters of specific requests.
*/
package ccdrpc

import (
	"encoding/hex"
	"encoding/json"

	"github.com/BukiOffor/registry/pkg/ccd"
)

const (
	// JSONRPCVersion is the only JSON-RPC protocol version supported.
	JSONRPCVersion = "2.0"
)

// Method names served by the node proxy.
const (
	GetInstanceInfoMethod              = "getInstanceInfo"
	GetModuleSourceMethod              = "getModuleSource"
	InvokeInstanceMethod               = "invokeInstance"
	GetNextAccountSequenceNumberMethod = "getNextAccountSequenceNumber"
	SendAccountTransactionMethod       = "sendAccountTransaction"
	GetConsensusInfoMethod             = "getConsensusInfo"
)

type (
	// Request represents JSON-RPC request. Params are always an array, the
	// client uses numeric identifiers.
	Request struct {
		// JSONRPC is the protocol version, only valid when it contains JSONRPCVersion.
		JSONRPC string `json:"jsonrpc"`
		// Method is the method being called.
		Method string `json:"method"`
		// Params is a set of method-specific parameters passed to the call.
		Params []any `json:"params"`
		// ID is an identifier associated with this request.
		ID uint64 `json:"id"`
	}

	// Header is a generic JSON-RPC 2.0 response header (ID and JSON-RPC version).
	Header struct {
		ID      json.RawMessage `json:"id"`
		JSONRPC string          `json:"jsonrpc"`
	}

	// HeaderAndError adds an Error (that can be empty) to the Header.
	HeaderAndError struct {
		Header
		Error *Error `json:"error,omitempty"`
	}

	// Response represents a standard raw JSON-RPC 2.0
	// response: http://www.jsonrpc.org/specification#response_object.
	Response struct {
		HeaderAndError
		Result json.RawMessage `json:"result,omitempty"`
	}
)

// InvokeInstanceRequest describes a contract dry-run. Invoker and Energy are
// optional, the node uses the contract owner and its own energy limit when
// they're missing.
type InvokeInstanceRequest struct {
	Instance  ccd.ContractAddress
	Amount    ccd.Amount
	Invoker   *ccd.Address
	Method    ccd.ReceiveName
	Parameter ccd.Parameter
	Energy    *ccd.Energy
}

type invokeInstanceAux struct {
	Instance  ccd.ContractAddress `json:"instance"`
	Amount    ccd.Amount          `json:"amount"`
	Invoker   *ccd.Address        `json:"invoker,omitempty"`
	Method    ccd.ReceiveName     `json:"method"`
	Parameter string              `json:"parameter"`
	Energy    *uint64             `json:"energy,omitempty"`
}

// MarshalJSON implements the json.Marshaler interface.
func (r InvokeInstanceRequest) MarshalJSON() ([]byte, error) {
	aux := invokeInstanceAux{
		Instance:  r.Instance,
		Amount:    r.Amount,
		Invoker:   r.Invoker,
		Method:    r.Method,
		Parameter: hex.EncodeToString(r.Parameter),
	}
	if r.Energy != nil {
		e := uint64(*r.Energy)
		aux.Energy = &e
	}
	return json.Marshal(aux)
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (r *InvokeInstanceRequest) UnmarshalJSON(data []byte) error {
	aux := new(invokeInstanceAux)
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	param, err := hex.DecodeString(aux.Parameter)
	if err != nil {
		return err
	}
	*r = InvokeInstanceRequest{
		Instance:  aux.Instance,
		Amount:    aux.Amount,
		Invoker:   aux.Invoker,
		Method:    aux.Method,
		Parameter: param,
	}
	if aux.Energy != nil {
		e := ccd.Energy(*aux.Energy)
		r.Energy = &e
	}
	return nil
}
