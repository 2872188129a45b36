package flags

import (
	"flag"
	"testing"

	"github.com/BukiOffor/registry/pkg/ccd"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

func TestParseContractAddress(t *testing.T) {
	for in, expected := range map[string]ccd.ContractAddress{
		"10289":    ccd.NewContractAddress(10289, 0),
		"100,1":    ccd.NewContractAddress(100, 1),
		"<100, 2>": ccd.NewContractAddress(100, 2),
		" <7,0> ":  ccd.NewContractAddress(7, 0),
	} {
		t.Run(in, func(t *testing.T) {
			addr, err := ParseContractAddress(in)
			require.NoError(t, err)
			require.Equal(t, expected, addr)
		})
	}
	for _, in := range []string{"", "x", "1,", "1,y", "-1", "<1,2"} {
		_, err := ParseContractAddress(in)
		require.Error(t, err, in)
	}
}

func TestGenericFlags(t *testing.T) {
	var acc ccd.AccountAddress
	acc[5] = 7

	set := flag.NewFlagSet("flagSet", flag.ContinueOnError)
	contract := new(ContractAddress)
	account := new(Account)
	cli.GenericFlag{Name: "contract", Value: contract}.Apply(set)
	cli.GenericFlag{Name: "address", Value: account}.Apply(set)
	require.Equal(t, "", contract.String())
	require.Equal(t, "", account.String())

	require.NoError(t, set.Parse([]string{"--contract", "<5,1>", "--address", acc.String()}))
	require.True(t, contract.IsSet)
	require.Equal(t, ccd.NewContractAddress(5, 1), contract.Value)
	require.Equal(t, "<5, 1>", contract.String())
	require.True(t, account.IsSet)
	require.Equal(t, acc, account.Value)
	require.Equal(t, acc.String(), account.String())

	require.Error(t, new(Account).Set(""))
	require.Error(t, new(Account).Set("notbase58!"))
	require.Error(t, new(ContractAddress).Set("nope"))
}
