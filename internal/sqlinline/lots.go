// Package sqlinline holds the SQL statements used by the repositories,
// kept as named constants so queries are greppable in one place.
package sqlinline

const QUpsertLot = `
insert into auction_lots (
  id,
  lot_number,
  lot_ref,
  lot_title,
  description,
  house_name,
  sale_type,
  date_time_local,
  date_time_utc_unix,
  price_result,
  currency_code,
  currency_symbol,
  original_photo_path,
  storage_path,
  raw_data,
  created_at,
  updated_at,
  processed_at
) values (
  $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, nullif($14, ''), $15, now(), now(), now()
)
on conflict (lot_ref) do update set
  lot_number = excluded.lot_number,
  lot_title = excluded.lot_title,
  description = excluded.description,
  house_name = excluded.house_name,
  sale_type = excluded.sale_type,
  date_time_local = excluded.date_time_local,
  date_time_utc_unix = excluded.date_time_utc_unix,
  price_result = excluded.price_result,
  currency_code = excluded.currency_code,
  currency_symbol = excluded.currency_symbol,
  original_photo_path = excluded.original_photo_path,
  storage_path = coalesce(excluded.storage_path, auction_lots.storage_path),
  raw_data = excluded.raw_data,
  updated_at = now(),
  processed_at = now()
returning
  id, lot_number, lot_ref, lot_title, coalesce(description, ''),
  house_name, sale_type, date_time_local, date_time_utc_unix,
  price_result, currency_code, currency_symbol,
  original_photo_path, coalesce(storage_path, ''), raw_data,
  created_at, updated_at, processed_at;
`

const QSelectLotByRef = `
select
  id, lot_number, lot_ref, lot_title, coalesce(description, ''),
  house_name, sale_type, date_time_local, date_time_utc_unix,
  price_result, currency_code, currency_symbol,
  original_photo_path, coalesce(storage_path, ''), raw_data,
  created_at, updated_at, processed_at
from auction_lots
where lot_ref = $1
limit 1;
`

const QListRecentLots = `
select
  id, lot_number, lot_ref, lot_title, coalesce(description, ''),
  house_name, sale_type, date_time_local, date_time_utc_unix,
  price_result, currency_code, currency_symbol,
  original_photo_path, coalesce(storage_path, ''), raw_data,
  created_at, updated_at, processed_at
from auction_lots
order by processed_at desc
limit $1;
`
