package flags

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/BukiOffor/registry/pkg/ccd"
	"github.com/urfave/cli"
)

// ContractAddress is a wrapper for a ccd.ContractAddress with flag.Value
// methods. It accepts "index", "index,subindex" and "<index,subindex>".
type ContractAddress struct {
	IsSet bool
	Value ccd.ContractAddress
}

// Account is a wrapper for a base58 account address with flag.Value methods.
type Account struct {
	IsSet bool
	Value ccd.AccountAddress
}

var (
	_ cli.Generic = (*ContractAddress)(nil)
	_ cli.Generic = (*Account)(nil)
)

// String implements the fmt.Stringer interface.
func (a ContractAddress) String() string {
	if !a.IsSet {
		return ""
	}
	return a.Value.String()
}

// Set implements the flag.Value interface.
func (a *ContractAddress) Set(s string) error {
	addr, err := ParseContractAddress(s)
	if err != nil {
		return err
	}
	a.IsSet = true
	a.Value = addr
	return nil
}

// ParseContractAddress parses the contract address in any of the supported
// forms.
func ParseContractAddress(s string) (ccd.ContractAddress, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">") {
		s = s[1 : len(s)-1]
	}
	idx, sub, hasSub := strings.Cut(s, ",")
	index, err := strconv.ParseUint(strings.TrimSpace(idx), 10, 64)
	if err != nil {
		return ccd.ContractAddress{}, fmt.Errorf("invalid contract index %q", idx)
	}
	var subindex uint64
	if hasSub {
		subindex, err = strconv.ParseUint(strings.TrimSpace(sub), 10, 64)
		if err != nil {
			return ccd.ContractAddress{}, fmt.Errorf("invalid contract subindex %q", sub)
		}
	}
	return ccd.NewContractAddress(index, subindex), nil
}

// String implements the fmt.Stringer interface.
func (a Account) String() string {
	if !a.IsSet {
		return ""
	}
	return a.Value.String()
}

// Set implements the flag.Value interface.
func (a *Account) Set(s string) error {
	if s == "" {
		return errors.New("empty account address")
	}
	addr, err := ccd.AccountAddressFromBase58(s)
	if err != nil {
		return fmt.Errorf("invalid account address %q: %w", s, err)
	}
	a.IsSet = true
	a.Value = addr
	return nil
}
