package sqlinline

// Provider names are matched case-insensitively. A blank stored token counts
// as missing so the caller falls back to the environment.
const QSelectProviderToken = `--sql 3f9c2d71-5b8e-4a06-9d14-c7e2a8b0f563
select token
from integration_tokens
where provider = lower($1::text)
  and btrim(token) <> ''
limit 1;
`

// Properties merge into what is stored; updated_at only moves when the token
// itself changes.
const QUpsertProviderToken = `--sql b18e4f0a-92d7-4c3b-8e65-0d7a1c9f24e8
insert into integration_tokens (provider, token, properties)
values (lower($1::text), $2::text, coalesce($3::jsonb, '{}'::jsonb))
on conflict (provider) do update set
    token = excluded.token,
    properties = integration_tokens.properties || excluded.properties,
    updated_at = case
        when integration_tokens.token is distinct from excluded.token then now()
        else integration_tokens.updated_at
    end;
`
