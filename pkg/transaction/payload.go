package transaction

import (
	"fmt"

	"github.com/BukiOffor/registry/pkg/ccd"
	"github.com/BukiOffor/registry/pkg/io"
)

// PayloadType is the tag of the account transaction payload.
type PayloadType byte

// Payload types used by the contract client.
const (
	InitContractType PayloadType = 1
	UpdateType       PayloadType = 2
)

// String implements the fmt.Stringer interface.
func (t PayloadType) String() string {
	switch t {
	case InitContractType:
		return "InitContract"
	case UpdateType:
		return "Update"
	default:
		return fmt.Sprintf("PayloadType(%d)", byte(t))
	}
}

// Payload is the body of an account transaction. EncodeBinary writes the
// type tag followed by the payload fields.
type Payload interface {
	io.Serializable
	Type() PayloadType
}

// UpdateContract calls a receive function of a contract instance.
type UpdateContract struct {
	Amount      ccd.Amount
	Address     ccd.ContractAddress
	ReceiveName ccd.ReceiveName
	Message     ccd.Parameter
}

// Type implements the Payload interface.
func (p *UpdateContract) Type() PayloadType { return UpdateType }

// EncodeBinary implements the io.Serializable interface.
func (p *UpdateContract) EncodeBinary(w *io.BinWriter) {
	w.WriteB(byte(UpdateType))
	w.WriteU64BE(uint64(p.Amount))
	w.WriteU64BE(p.Address.Index)
	w.WriteU64BE(p.Address.Subindex)
	w.WriteString16(string(p.ReceiveName))
	w.WriteVarBytes16(p.Message)
}

// DecodeBinary implements the io.Serializable interface.
func (p *UpdateContract) DecodeBinary(r *io.BinReader) {
	if t := PayloadType(r.ReadB()); r.Err == nil && t != UpdateType {
		r.Err = fmt.Errorf("unexpected payload type %s", t)
		return
	}
	p.Amount = ccd.Amount(r.ReadU64BE())
	p.Address.Index = r.ReadU64BE()
	p.Address.Subindex = r.ReadU64BE()
	p.ReceiveName = ccd.ReceiveName(r.ReadString16())
	p.Message = r.ReadVarBytes16()
}

// InitContract creates a new contract instance from a deployed module.
type InitContract struct {
	Amount    ccd.Amount
	ModuleRef ccd.ModuleReference
	InitName  ccd.ContractName
	Param     ccd.Parameter
}

// Type implements the Payload interface.
func (p *InitContract) Type() PayloadType { return InitContractType }

// EncodeBinary implements the io.Serializable interface.
func (p *InitContract) EncodeBinary(w *io.BinWriter) {
	w.WriteB(byte(InitContractType))
	w.WriteU64BE(uint64(p.Amount))
	w.WriteBytes(p.ModuleRef[:])
	w.WriteString16(p.InitName.InitName())
	w.WriteVarBytes16(p.Param)
}

// DecodeBinary implements the io.Serializable interface.
func (p *InitContract) DecodeBinary(r *io.BinReader) {
	if t := PayloadType(r.ReadB()); r.Err == nil && t != InitContractType {
		r.Err = fmt.Errorf("unexpected payload type %s", t)
		return
	}
	p.Amount = ccd.Amount(r.ReadU64BE())
	r.ReadBytes(p.ModuleRef[:])
	name := r.ReadString16()
	if r.Err != nil {
		return
	}
	p.InitName, r.Err = ccd.ContractNameFromInitName(name)
	p.Param = r.ReadVarBytes16()
}

func decodePayload(b []byte) (Payload, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("empty payload")
	}
	var p Payload
	switch PayloadType(b[0]) {
	case UpdateType:
		p = new(UpdateContract)
	case InitContractType:
		p = new(InitContract)
	default:
		return nil, fmt.Errorf("unsupported payload type %s", PayloadType(b[0]))
	}
	if err := io.FromByteArray(p, b); err != nil {
		return nil, err
	}
	return p, nil
}
