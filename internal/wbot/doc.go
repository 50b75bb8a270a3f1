/*
Package wbot supervises long-lived WhatsApp client sessions, one per
connected account.

The package owns four things:

  - Store: the process-wide registry of live session handles. A handle is
    present exactly while its session is considered live; registration is
    idempotent and removal always succeeds from the caller's perspective.

  - Manager: the lifecycle controller. StartSession builds the underlying
    client through the injected Factory and runs a per-session event loop
    that owns all mutation of the account record. The loop persists each
    transition through the AccountUpdater before publishing the matching
    tenant event, and completes the pending StartSession exactly once:
    with a ready handle, or with ErrAuthFailure.

  - Monitor: the per-session liveness probe. On a fixed interval it asks the
    client for its connection state; a healthy probe enqueues an outbound
    drain job, a fatal probe (see IsSessionClosed) cancels the probe loop
    and removes the handle from the Store, and anything else is logged and
    tolerated.

  - FSManager: the on-disk authentication caches, purged best-effort when a
    session is torn down for re-pairing.

The underlying protocol client is external. It is reached only through the
Client interface and constructed through a Factory, registered by the client
implementation's package in the manner of database/sql drivers.
*/
package wbot
