package registry

import (
	"bytes"

	"github.com/BukiOffor/registry/pkg/ccd"
	"github.com/BukiOffor/registry/pkg/schema"
)

// Data is the registry record stored for a tag.
type Data struct {
	// PublicKey is the hex-encoded ed25519 key of the tag owner.
	PublicKey       string
	ContractAddress ccd.ContractAddress
	Provider        string
}

// Message is the signed part of the register parameter. It's also the
// get_param_hash parameter.
type Message struct {
	Tag        string
	Data       Data
	ExpiryTime ccd.Timestamp
}

// GetParamHashParameter is the parameter of get_param_hash.
type GetParamHashParameter = Message

// RegisterParameter is the parameter of register. Signer and Signature are
// hex-encoded, Signer must be equal to the public key in the message data.
type RegisterParameter struct {
	Signer    string
	Signature string
	Message   Message
}

// GetKeyParameter is the tag to look up with get_key.
type GetKeyParameter = string

// GetTagParameter is the hex-encoded public key to look up with get_tag.
type GetTagParameter = string

type dataSchemaJSON struct {
	PublicKey       string                         `json:"public_key"`
	ContractAddress ccd.ContractAddressSchemaValue `json:"contract_address"`
	Provider        string                         `json:"provider"`
}

type messageSchemaJSON struct {
	Tag        string                   `json:"tag"`
	Data       dataSchemaJSON           `json:"data"`
	ExpiryTime ccd.TimestampSchemaValue `json:"expiry_time"`
}

type registerSchemaJSON struct {
	Signer    string            `json:"signer"`
	Signature string            `json:"signature"`
	Message   messageSchemaJSON `json:"message"`
}

func (m Message) schemaJSON() messageSchemaJSON {
	return messageSchemaJSON{
		Tag: m.Tag,
		Data: dataSchemaJSON{
			PublicKey:       m.Data.PublicKey,
			ContractAddress: m.Data.ContractAddress.ToSchemaValue(),
			Provider:        m.Data.Provider,
		},
		ExpiryTime: m.ExpiryTime.ToSchemaValue(),
	}
}

func (p RegisterParameter) schemaJSON() registerSchemaJSON {
	return registerSchemaJSON{
		Signer:    p.Signer,
		Signature: p.Signature,
		Message:   p.Message.schemaJSON(),
	}
}

func messageFromSchemaJSON(j messageSchemaJSON) Message {
	return Message{
		Tag: j.Tag,
		Data: Data{
			PublicKey:       j.Data.PublicKey,
			ContractAddress: ccd.ContractAddressFromSchemaValue(j.Data.ContractAddress),
			Provider:        j.Data.Provider,
		},
		ExpiryTime: ccd.Timestamp(j.ExpiryTime),
	}
}

func encodeParameter(t schema.Type, v any) (ccd.Parameter, error) {
	b, err := schema.EncodeJSON(t, v)
	if err != nil {
		return nil, err
	}
	return ccd.NewParameter(b)
}

// NewGetParamHashParameter serializes the get_param_hash parameter.
func NewGetParamHashParameter(p GetParamHashParameter) (ccd.Parameter, error) {
	return encodeParameter(getParamHashParameterType, p.schemaJSON())
}

// NewRegisterParameter serializes the register parameter.
func NewRegisterParameter(p RegisterParameter) (ccd.Parameter, error) {
	return encodeParameter(registerParameterType, p.schemaJSON())
}

// NewGetKeyParameter serializes the get_key parameter, the tag is passed
// as is.
func NewGetKeyParameter(p GetKeyParameter) (ccd.Parameter, error) {
	return encodeParameter(getKeyParameterType, p)
}

// NewGetTagParameter serializes the get_tag parameter.
func NewGetTagParameter(p GetTagParameter) (ccd.Parameter, error) {
	return encodeParameter(getTagParameterType, p)
}

// DecodeRegisterParameter is the inverse of NewRegisterParameter.
func DecodeRegisterParameter(param ccd.Parameter) (RegisterParameter, error) {
	var j registerSchemaJSON
	if err := schema.DecodeJSON(registerParameterType, param, &j); err != nil {
		return RegisterParameter{}, err
	}
	return RegisterParameter{Signer: j.Signer, Signature: j.Signature, Message: messageFromSchemaJSON(j.Message)}, nil
}

// DecodeGetParamHashParameter is the inverse of NewGetParamHashParameter.
func DecodeGetParamHashParameter(param ccd.Parameter) (GetParamHashParameter, error) {
	var j messageSchemaJSON
	if err := schema.DecodeJSON(getParamHashParameterType, param, &j); err != nil {
		return Message{}, err
	}
	return messageFromSchemaJSON(j), nil
}

// WebWalletSchema is the schema reference a browser wallet needs to
// serialize the parameter itself. Value is base64 in JSON.
type WebWalletSchema struct {
	Type  string `json:"type"`
	Value []byte `json:"value"`
}

// WebWalletParameter is the parameter in its schema JSON form along with the
// schema, it's what browser wallets accept for update transactions.
type WebWalletParameter struct {
	Parameters any             `json:"parameters"`
	Schema     WebWalletSchema `json:"schema"`
}

func webWallet(v any, raw []byte) WebWalletParameter {
	return WebWalletParameter{
		Parameters: v,
		Schema:     WebWalletSchema{Type: "TypeSchema", Value: bytes.Clone(raw)},
	}
}

// GetParamHashParameterWebWallet returns the get_param_hash parameter for a
// browser wallet.
func GetParamHashParameterWebWallet(p GetParamHashParameter) WebWalletParameter {
	return webWallet(p.schemaJSON(), getParamHashParameterSchemaBytes)
}

// RegisterParameterWebWallet returns the register parameter for a browser
// wallet.
func RegisterParameterWebWallet(p RegisterParameter) WebWalletParameter {
	return webWallet(p.schemaJSON(), registerParameterSchemaBytes)
}

// GetKeyParameterWebWallet returns the get_key parameter for a browser
// wallet.
func GetKeyParameterWebWallet(p GetKeyParameter) WebWalletParameter {
	return webWallet(p, getKeyParameterSchemaBytes)
}

// GetTagParameterWebWallet returns the get_tag parameter for a browser
// wallet.
func GetTagParameterWebWallet(p GetTagParameter) WebWalletParameter {
	return webWallet(p, getTagParameterSchemaBytes)
}
