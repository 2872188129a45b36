/*
Package ccd contains the basic Concordium chain types used by the RPC client
and contract bindings: addresses, hashes, energy, amounts, timestamps and
contract names.
*/
package ccd
