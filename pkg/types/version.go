package types

// CommitVersion is a monotonic version assigned at commit time. Version 0 is
// the "before any commit" sentinel: reads at version V see the newest value
// whose commit version is <= V.
type CommitVersion uint64

// VersionBeforeAnyCommit is the sentinel version that sees no committed
// data. Committing at this version is rejected (the design notes, boundary
// behaviors).
const VersionBeforeAnyCommit CommitVersion = 0

// VersionLatest resolves to "the newest committed version" wherever the
// store or a txn accepts it as a snapshot bound.
const VersionLatest CommitVersion = ^CommitVersion(0)
