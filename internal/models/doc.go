// Package models defines the data contracts shared by the fee and payment
// components and the backend they talk to.
//
// # Fees
//
// A Fee is a billable obligation assigned to one student. Its Status is owned by
// the backend: clients read it on every fetch and never store a derived value of
// their own, except for the short-lived optimistic patch applied after a payment.
// The status invariant is
//
//	overdue  <=>  deadline strictly before today AND not paid
//
// DeriveStatus encodes it for the backend side.
//
// # Categories
//
// Fees carry a free-form category string. Display code partitions them into the
// four buckets returned by BucketOf; "tuition" and "tuition_fee" share a bucket and
// anything unknown or missing falls into "other".
//
// # Admin records
//
// The admin listing endpoint returns AdminFee records, which describe the fee
// definition and carry no per-student status. See AdminFee.ToFee.
package models
