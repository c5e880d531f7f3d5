package domain

// KeyPrefix namespaces every key the service writes to Redis.
const KeyPrefix = "carmatch:"

// ListingKeyPrefix is the default prefix of hash-backed listings.
const ListingKeyPrefix = KeyPrefix + "listing:"
