package sqlinline

const QUpsertExternalUser = `--sql 22270e63-0047-4f0c-8a8d-5e1f018c2897
with incoming as (
    select
        $1::text as provider,
        $2::text as external_id,
        $3::text as email,
        $4::text as name,
        $5::text as avatar_url
)
insert into users (id, provider, external_id, email, name, avatar_url, created_at, updated_at)
select gen_random_uuid(), i.provider, i.external_id, i.email, i.name, i.avatar_url, now(), now()
from incoming i
on conflict (provider, external_id) do update set
    email = coalesce(nullif(excluded.email, ''), users.email),
    name = coalesce(nullif(excluded.name, ''), users.name),
    avatar_url = coalesce(nullif(excluded.avatar_url, ''), users.avatar_url),
    updated_at = now()
returning id::text, provider, external_id, email, name, avatar_url, created_at, updated_at;
`

const QSelectUserByID = `--sql 4cdf02cd-1013-4150-9cec-73e5335faac3
select
    id::text,
    provider,
    external_id,
    email,
    name,
    avatar_url,
    created_at,
    updated_at
from users
where id = $1::uuid
limit 1;
`
