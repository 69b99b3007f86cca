package queue

// TypeReconcileSweep triggers one pass of the index/metadata reconciliation
// sweep. It carries no payload: the sweep always diffs the full stores.
const TypeReconcileSweep = "index:reconcile"
