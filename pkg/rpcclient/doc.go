/*
Package rpcclient implements a client for the Concordium node JSON-RPC proxy.

The client is the lowest layer, it only knows how to make the calls and
decode their results. Contract dry-runs are better done via the [invoker]
package and transactions are created, signed and sent via the [actor]
package. Contract-specific wrappers (like the registry package) are built on top of
these.

Every call is counted and timed with Prometheus metrics registered in the
default registry.
*/
package rpcclient
