/*
Package wallet provides account signers: accounts with ed25519 keys built
from a raw key or loaded from a browser wallet export.
*/
package wallet
