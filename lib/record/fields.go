// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package record

// Payload discriminator.
const (
	FieldType    = "type"
	TypeEvent    = "event"
	TypeIdentify = "identify"
)

// Event payload structure.
const (
	FieldCollection = "collection"
	FieldProperties = "properties"
)

// Standard fields stamped on every record.
const (
	FieldID             = "_id"
	FieldLocalID        = "_local_id"
	FieldTime           = "_time"
	FieldUser           = "_user"
	FieldDeviceID       = "_device_id"
	FieldSessionID      = "_session_id"
	FieldPlatform       = "_platform"
	FieldLibraryName    = "_library_name"
	FieldLibraryVersion = "_library_version"
)

// Device metadata, events only.
const (
	FieldVersionName        = "_version_name"
	FieldOSName             = "_os_name"
	FieldOSVersion          = "_os_version"
	FieldDeviceBrand        = "_device_brand"
	FieldDeviceManufacturer = "_device_manufacturer"
	FieldDeviceModel        = "_device_model"
	FieldCarrier            = "_carrier"
	FieldCountryCode        = "_country_code"
	FieldLanguage           = "_language"
	FieldIP                 = "_ip"
	FieldLatitude           = "_latitude"
	FieldLongitude          = "_longitude"
	FieldAdvertisingID      = "_adid"
	FieldLimitAdTracking    = "_limit_ad_tracking"
)

// Synthetic event names.
const (
	SessionStartEvent = "_session_start"
	SessionEndEvent   = "_session_end"
	RevenueEvent      = "_revenue"
)

// Revenue event properties.
const (
	FieldProductID   = "_product_id"
	FieldQuantity    = "_quantity"
	FieldPrice       = "_price"
	FieldRevenueType = "_revenue_type"
	FieldReceipt     = "_receipt"
	FieldReceiptSig  = "_receipt_sig"
)

// User property operations carried by identify payloads.
const (
	OpSet      = "set_properties"
	OpSetOnce  = "set_properties_once"
	OpAdd      = "increment_properties"
	OpAppend   = "append_item_to_property"
	OpUnset    = "unset_properties"
	OpClearAll = "clear_all_properties"
)

// Operations lists every identify operation.
var Operations = []string{OpSet, OpSetOnce, OpAdd, OpAppend, OpUnset, OpClearAll}

// Bookkeeping keys in the store's key-value table.
const (
	KeyDeviceID          = "device_id"
	KeyUserID            = "user_id"
	KeyOptOut            = "opt_out"
	KeyLastEventID       = "last_event_id"
	KeyLastIdentifyID    = "last_identify_id"
	KeyLastEventTime     = "last_event_time"
	KeyPreviousSessionID = "previous_session_id"
	KeySuperProperties   = "super_properties"
)
